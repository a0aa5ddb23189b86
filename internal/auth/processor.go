package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// Request is one parsed login-flow request. Type mirrors the HTTP method of
// the login endpoint: GET requests a challenge, POST performs the login, PUT
// exchanges a refresh token.
type Request struct {
	Type       string
	WalletType string
	Wallet     string
	Payload    map[string]any
}

// Response is the login-flow reply returned to the caller.
type Response struct {
	Message      string    `json:"message,omitempty"`
	Nonce        string    `json:"nonce,omitempty"`
	Token        string    `json:"token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Handler serves one login request type.
type Handler interface {
	Handle(ctx context.Context, req Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req Request) (*Response, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Processor dispatches login requests to their per-type handlers and runs
// the configured login hooks around them.
type Processor struct {
	handlers map[string]Handler
	hooks    []core.LoginHook
}

func NewProcessor(hooks []core.LoginHook) *Processor {
	return &Processor{
		handlers: make(map[string]Handler),
		hooks:    hooks,
	}
}

// Register binds a handler to a request type. Later registrations replace
// earlier ones.
func (p *Processor) Register(requestType string, h Handler) {
	p.handlers[requestType] = h
}

// Process normalizes the wallet, runs BEFORE hooks, the handler and then
// AFTER hooks. A failing BEFORE hook aborts the login; a failing AFTER hook
// is logged but does not revoke an already issued session.
func (p *Processor) Process(ctx context.Context, req Request) (*Response, error) {
	wallet, err := NormalizeWallet(req.Wallet)
	if err != nil {
		return nil, err
	}
	req.Wallet = wallet

	handler, ok := p.handlers[req.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedRequestType, req.Type)
	}

	if err := p.runHooks(ctx, core.PhaseBefore, req); err != nil {
		return nil, fmt.Errorf("running pre-login hooks: %w", err)
	}

	resp, err := handler.Handle(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := p.runHooks(ctx, core.PhaseAfter, req); err != nil {
		log.Ctx(ctx).Warn().Err(err).
			Str("wallet", req.Wallet).
			Msg("post-login hook failed")
	}
	return resp, nil
}

func (p *Processor) runHooks(ctx context.Context, phase core.LoginPhase, req Request) error {
	for _, hook := range p.hooks {
		if !hookApplies(hook, phase, req.Type) {
			continue
		}
		if err := hook.Process(ctx, req.Wallet); err != nil {
			return err
		}
	}
	return nil
}

func hookApplies(hook core.LoginHook, phase core.LoginPhase, requestType string) bool {
	inPhase := false
	for _, p := range hook.Phases() {
		if p == phase {
			inPhase = true
			break
		}
	}
	if !inPhase {
		return false
	}
	for _, t := range hook.RequestTypes() {
		if t == requestType {
			return true
		}
	}
	return false
}

// ChallengeHandler issues a fresh signing challenge for the wallet.
type ChallengeHandler struct {
	Nonces *NonceService
}

func (h *ChallengeHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	nonce, err := h.Nonces.New(ctx, req.Wallet)
	if err != nil {
		return nil, fmt.Errorf("issuing nonce: %w", err)
	}
	return &Response{
		Message: nonce.Message,
		Nonce:   nonce.Value,
	}, nil
}

// LoginHandler consumes the pending challenge, verifies the wallet signature
// and issues the session tokens.
type LoginHandler struct {
	Nonces     *NonceService
	Signatures core.SignatureVerifier
	Sessions   *SessionIssuer
}

func (h *LoginHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	sign, _ := req.Payload["sign"].(string)
	if sign == "" {
		return nil, fmt.Errorf("%w: missing sign field", core.ErrMalformedRequest)
	}

	nonce, err := h.Nonces.Consume(ctx, req.Wallet)
	if err != nil {
		return nil, err
	}
	if err := h.Signatures.Check(ctx, *nonce, sign); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("wallet", req.Wallet).
		Str("wallet_type", req.WalletType).
		Msg("wallet login verified")

	return h.Sessions.Issue(ctx, req.WalletType, req.Wallet)
}

// RefreshHandler exchanges a valid refresh token for a new session.
type RefreshHandler struct {
	Refresh  *RefreshService
	Sessions *SessionIssuer
}

func (h *RefreshHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	value, _ := req.Payload["refresh_token"].(string)
	if value == "" {
		return nil, fmt.Errorf("%w: missing refresh_token field", core.ErrMalformedRequest)
	}
	if _, err := h.Refresh.Rotate(ctx, req.Wallet, value); err != nil {
		return nil, err
	}
	return h.Sessions.Issue(ctx, req.WalletType, req.Wallet)
}

// SessionIssuer builds the client identity for a wallet and issues the JWT
// plus refresh token pair. The identity provider and wallet resolver are
// optional; without them the session carries default claims.
type SessionIssuer struct {
	Identity core.IdentityProvider
	Wallets  core.WalletResolver
	JWT      *JWTService
	Refresh  *RefreshService
}

func (s *SessionIssuer) Issue(ctx context.Context, walletType, wallet string) (*Response, error) {
	client, err := s.buildClient(ctx, walletType, wallet)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.JWT.Create(*client)
	if err != nil {
		return nil, fmt.Errorf("issuing jwt: %w", err)
	}
	refresh, err := s.Refresh.Issue(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return &Response{
		Token:        token,
		RefreshToken: refresh.Value,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *SessionIssuer) buildClient(ctx context.Context, walletType, wallet string) (*core.Client, error) {
	var client *core.Client
	if s.Identity != nil {
		fetched, err := s.Identity.Fetch(ctx, wallet)
		if err != nil {
			return nil, err
		}
		client = fetched
	} else {
		client = &core.Client{
			ID:          wallet,
			Authorities: []string{"ALL"},
		}
	}
	client.WalletType = walletType
	client.CurrentWallet = wallet

	if s.Wallets != nil {
		binding, err := s.Wallets.Resolve(ctx, wallet)
		if err != nil {
			return nil, err
		}
		client.Wallets = binding.Wallets
		if binding.ProfileID != "" {
			client.ID = binding.ProfileID
		}
	}
	if len(client.Wallets) == 0 {
		client.Wallets = []string{wallet}
	}
	return client, nil
}
