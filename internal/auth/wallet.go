package auth

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

var walletPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// NormalizeWallet brings a wallet address into canonical form: lower-case
// hex with a 0x prefix. It rejects anything that is not a 20-byte address.
func NormalizeWallet(addr string) (string, error) {
	w := strings.ToLower(strings.TrimSpace(addr))
	if !strings.HasPrefix(w, "0x") {
		w = "0x" + w
	}
	if !walletPattern.MatchString(w) {
		return "", fmt.Errorf("%w: invalid wallet address %q", core.ErrMalformedRequest, addr)
	}
	return w, nil
}
