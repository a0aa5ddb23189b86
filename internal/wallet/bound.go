package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// BoundService attaches an additional wallet to an existing profile through
// the external bound-wallets collaborator. The URI may contain {profileId}
// and {walletSecond} placeholders.
type BoundService struct {
	uri    string
	method string
	client *http.Client
}

func NewBoundService(cfg *config.HTTPService, client *http.Client) *BoundService {
	if cfg == nil {
		return nil
	}
	return &BoundService{
		uri:    cfg.URI,
		method: methodOrDefault(cfg.Method, http.MethodPost),
		client: client,
	}
}

// Bind registers walletSecond with the client's profile and returns the
// status reported by the service.
func (s *BoundService) Bind(ctx context.Context, client core.Client, walletSecond string) (string, error) {
	uri := strings.NewReplacer(
		"{profileId}", client.ID,
		"{walletSecond}", walletSecond,
	).Replace(s.uri)

	req, err := http.NewRequestWithContext(ctx, s.method, uri, nil)
	if err != nil {
		return "", fmt.Errorf("building bound-wallet request: %w", err)
	}
	req.Header.Set("X-Client-Wallet", client.CurrentWallet)
	req.Header.Set("X-Client-Wallets", strings.Join(append(append([]string{}, client.Wallets...), walletSecond), ","))
	req.Header.Set("X-Client-Id", client.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling bound-wallet service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", core.ErrNotBound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("bound-wallet service returned status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding bound-wallet response: %w", err)
	}
	return body.Status, nil
}
