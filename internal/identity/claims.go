package identity

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

// ClaimsClient fetches identity claims for a wallet from the external
// claims service. Response field names are configurable since deployments
// differ in what their identity service calls them.
type ClaimsClient struct {
	uri              string
	method           string
	clientIDField    string
	typeField        string
	authoritiesField string
	client           *http.Client
}

var _ core.IdentityProvider = (*ClaimsClient)(nil)

func NewClaimsClient(cfg config.ClaimsConfig, client *http.Client) *ClaimsClient {
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	c := &ClaimsClient{
		uri:              cfg.URI,
		method:           method,
		clientIDField:    cfg.ClientIDField,
		typeField:        cfg.TypeField,
		authoritiesField: cfg.AuthoritiesField,
		client:           client,
	}
	if c.clientIDField == "" {
		c.clientIDField = "clientId"
	}
	if c.typeField == "" {
		c.typeField = "type"
	}
	if c.authoritiesField == "" {
		c.authoritiesField = "authorities"
	}
	return c
}

// Fetch asks the claims service for the wallet's identity. Transport errors
// and 5xx responses surface as ErrIdentityServiceUnavailable so the caller
// can distinguish "service down" from "wallet unknown".
func (c *ClaimsClient) Fetch(ctx context.Context, wallet string) (*core.Client, error) {
	uri := strings.TrimSuffix(c.uri, "/") + "/" + wallet

	req, err := http.NewRequestWithContext(ctx, c.method, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("building claims request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client-Wallet", wallet)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIdentityServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: claims service returned status %d", core.ErrIdentityServiceUnavailable, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("claims service returned status %d", resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding claims response: %w", err)
	}

	client := &core.Client{
		ID:          stringField(raw, c.clientIDField),
		WalletType:  stringField(raw, c.typeField),
		Authorities: stringsField(raw, c.authoritiesField),
	}
	if client.ID == "" {
		client.ID = wallet
	}

	log.Ctx(ctx).Debug().
		Str("wallet", wallet).
		Str("client_id", client.ID).
		Strs("authorities", client.Authorities).
		Msg("fetched identity claims")

	return client, nil
}

func stringField(raw map[string]any, key string) string {
	v, _ := raw[key].(string)
	return v
}

func stringsField(raw map[string]any, key string) []string {
	switch v := raw[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return strings.Split(v, ",")
	default:
		return nil
	}
}
