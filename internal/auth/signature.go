package auth

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// NewSignatureVerifier builds the verifier selected in config.
func NewSignatureVerifier(cfg config.SignatureConfig, client *http.Client) (core.SignatureVerifier, error) {
	if cfg.Disabled {
		return noopVerifier{}, nil
	}
	switch cfg.Type {
	case "", "local":
		return &LocalVerifier{}, nil
	case "http":
		return &HTTPVerifier{uri: cfg.URI, client: client}, nil
	default:
		return nil, fmt.Errorf("unknown signature verifier type %q", cfg.Type)
	}
}

type noopVerifier struct{}

func (noopVerifier) Check(context.Context, core.Nonce, string) error { return nil }

// LocalVerifier recovers the signer of an EIP-191 personal-sign signature
// and compares it to the wallet the nonce was issued for.
type LocalVerifier struct{}

func (v *LocalVerifier) Check(_ context.Context, nonce core.Nonce, signature string) error {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "0x"))
	if err != nil {
		return fmt.Errorf("%w: decoding signature: %v", core.ErrInvalidSignature, err)
	}
	if len(sig) != 65 {
		return fmt.Errorf("%w: signature must be 65 bytes, got %d", core.ErrInvalidSignature, len(sig))
	}
	// geth expects the recovery id in the last byte as 0/1
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	msg := []byte(nonce.Message)
	digest := crypto.Keccak256(
		[]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(msg))),
		msg,
	)

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return fmt.Errorf("%w: recovering public key: %v", core.ErrInvalidSignature, err)
	}
	recovered := strings.ToLower(crypto.PubkeyToAddress(*pub).Hex())

	expected, err := NormalizeWallet(nonce.Wallet)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
	if recovered != expected {
		return &core.WrongSignerError{Recovered: recovered, Expected: expected}
	}
	return nil
}

// HTTPVerifier delegates signature verification to an external service.
type HTTPVerifier struct {
	uri    string
	client *http.Client
}

type verifyRequest struct {
	Wallet    string `json:"wallet"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

func (v *HTTPVerifier) Check(ctx context.Context, nonce core.Nonce, signature string) error {
	body, err := json.Marshal(verifyRequest{
		Wallet:    nonce.Wallet,
		Message:   nonce.Message,
		Signature: signature,
	})
	if err != nil {
		return fmt.Errorf("encoding verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.uri, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling signature verifier: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return nil
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return core.ErrInvalidSignature
	default:
		return fmt.Errorf("signature verifier returned status %d", res.StatusCode)
	}
}
