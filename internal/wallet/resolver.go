package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// NewResolver selects the wallet resolver from configuration. A disabled
// multi-wallet setup still gets the single resolver, so every session
// carries a wallet list.
func NewResolver(cfg config.MultiWalletConfig, client *http.Client) (core.WalletResolver, error) {
	if cfg.Disabled || cfg.Provider == "" || cfg.Provider == "SINGLE" {
		return SingleResolver{}, nil
	}
	if cfg.Provider != "HTTP_SERVICE" {
		return nil, fmt.Errorf("unknown multi-wallet provider %q", cfg.Provider)
	}
	return &HTTPResolver{
		uri:    cfg.HTTPService.URI,
		method: methodOrDefault(cfg.HTTPService.Method, http.MethodGet),
		client: client,
	}, nil
}

// SingleResolver treats every wallet as its own one-wallet profile.
type SingleResolver struct{}

func (SingleResolver) Resolve(_ context.Context, wallet string) (*core.WalletBinding, error) {
	return &core.WalletBinding{
		Wallets: []string{wallet},
	}, nil
}

// HTTPResolver asks an external profile service for all wallets bound to
// the same profile as the given wallet.
type HTTPResolver struct {
	uri    string
	method string
	client *http.Client
}

func (r *HTTPResolver) Resolve(ctx context.Context, wallet string) (*core.WalletBinding, error) {
	uri := strings.TrimSuffix(r.uri, "/") + "/" + wallet

	req, err := http.NewRequestWithContext(ctx, r.method, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("building wallet resolver request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client-Wallet", wallet)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling wallet resolver: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("wallet resolver returned status %d", resp.StatusCode)
	}

	var body struct {
		ProfileID string   `json:"profile_id"`
		Wallets   []string `json:"wallets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding wallet resolver response: %w", err)
	}
	if len(body.Wallets) == 0 {
		body.Wallets = []string{wallet}
	}

	log.Ctx(ctx).Debug().
		Str("wallet", wallet).
		Int("bound_wallets", len(body.Wallets)).
		Msg("resolved profile wallets")

	return &core.WalletBinding{
		ProfileID: body.ProfileID,
		Wallets:   body.Wallets,
	}, nil
}

func methodOrDefault(method, fallback string) string {
	if method == "" {
		return fallback
	}
	return method
}
