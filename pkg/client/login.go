package client

import (
	"context"
	"net/http"
	"time"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/gateway"
)

// Challenge is the signing challenge returned by the gateway for a wallet.
type Challenge struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
}

// Session is an issued gateway session.
type Session struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Identity describes what a token grants.
type Identity struct {
	ClientID      string   `json:"client_id"`
	CurrentWallet string   `json:"current_wallet"`
	Wallets       []string `json:"wallets"`
	Authorities   []string `json:"authorities"`
}

// RequestChallenge asks the gateway for a fresh signing challenge.
func (c *Client) RequestChallenge(ctx context.Context, wallet string) (*Challenge, string, error) {
	var challenge Challenge
	correlation, err := c.get(ctx, c.url().
		setPath(gateway.LoginRoute).
		setPathParam("wallet", wallet).
		build(), &challenge)
	if err != nil {
		return nil, correlation, err
	}
	return &challenge, correlation, nil
}

// Login submits the signed challenge and returns the issued session.
func (c *Client) Login(ctx context.Context, wallet, signature string) (*Session, string, error) {
	var session Session
	correlation, err := c.send(ctx, http.MethodPost, c.url().
		setPath(gateway.LoginRoute).
		setPathParam("wallet", wallet).
		build(), map[string]string{"sign": signature}, &session)
	if err != nil {
		return nil, correlation, err
	}
	return &session, correlation, nil
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, wallet, refreshToken string) (*Session, string, error) {
	var session Session
	correlation, err := c.send(ctx, http.MethodPut, c.url().
		setPath(gateway.LoginRoute).
		setPathParam("wallet", wallet).
		build(), map[string]string{"refresh_token": refreshToken}, &session)
	if err != nil {
		return nil, correlation, err
	}
	return &session, correlation, nil
}

// Authorities returns the identity behind the client's auth token.
func (c *Client) Authorities(ctx context.Context) (*Identity, string, error) {
	var identity Identity
	correlation, err := c.get(ctx, c.url().
		setPath(gateway.AuthoritiesRoute).
		build(), &identity)
	if err != nil {
		return nil, correlation, err
	}
	return &identity, correlation, nil
}

// Health checks whether the gateway is up.
func (c *Client) Health(ctx context.Context) (string, error) {
	return c.get(ctx, c.url().setPath(gateway.HealthCheckRoute).build(), nil)
}
