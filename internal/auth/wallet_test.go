package auth

import (
	"errors"
	"testing"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

func TestNormalizeWallet(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		want    string
		wantErr bool
	}{
		{
			name: "Already Canonical",
			addr: "0x1111111111111111111111111111111111111111",
			want: "0x1111111111111111111111111111111111111111",
		},
		{
			name: "Checksummed Address",
			addr: "0xAbCdEf1234567890aBcDeF1234567890ABCDef12",
			want: "0xabcdef1234567890abcdef1234567890abcdef12",
		},
		{
			name: "Missing Prefix",
			addr: "1111111111111111111111111111111111111111",
			want: "0x1111111111111111111111111111111111111111",
		},
		{
			name: "Surrounding Whitespace",
			addr: "  0x1111111111111111111111111111111111111111  ",
			want: "0x1111111111111111111111111111111111111111",
		},
		{name: "Empty", addr: "", wantErr: true},
		{name: "Too Short", addr: "0x1234", wantErr: true},
		{name: "Too Long", addr: "0x11111111111111111111111111111111111111111111", wantErr: true},
		{name: "Not Hex", addr: "0xzzzz111111111111111111111111111111111111", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeWallet(tt.addr)
			if tt.wantErr {
				if !errors.Is(err, core.ErrMalformedRequest) {
					t.Fatalf("NormalizeWallet() error = %v, want ErrMalformedRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeWallet() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeWallet() = %q, want %q", got, tt.want)
			}
		})
	}
}
