package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/auth"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/gateway/presenter"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleProxy is the catch-all: every request not handled by the gateway's
// own endpoints runs through the policy enforcer and, if allowed, is
// forwarded upstream.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	verdict := s.enforcer.Decide(r.Context(), r)
	s.audit(r, verdict, time.Since(start))

	if !verdict.Allowed {
		presenter.Error(w, r, verdict.Reason, denyStatus(verdict.Reason))
		return
	}
	s.proxy.Forward(w, r, verdict.Client)
}

func denyStatus(reason string) int {
	switch reason {
	case ReasonValidationFailed:
		return http.StatusForbidden
	case ReasonValidationUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}

func (s *Server) audit(r *http.Request, verdict core.Verdict, duration time.Duration) {
	entry := core.AuditEntry{
		ID:       xid.New().String(),
		Time:     time.Now(),
		Method:   r.Method,
		Path:     r.URL.Path,
		RuleName: verdict.RuleName,
		Allowed:  verdict.Allowed,
		Reason:   verdict.Reason,
		Provider: verdict.Provider,
		Duration: duration,
	}
	if verdict.Client != nil {
		entry.ClientID = verdict.Client.ID
		entry.Wallet = verdict.Client.CurrentWallet
	}
	if err := s.auditor.Log(r.Context(), entry); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write audit entry")
	}
}

// handleLogin serves the three-step wallet login: GET issues a challenge,
// POST verifies the signed challenge, PUT rotates a refresh token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(r)
	if err != nil {
		s.observeLogin(r.Method, "malformed")
		presenter.Err(w, r, err, "login failed")
		return
	}

	resp, err := s.processor.Process(r.Context(), auth.Request{
		Type:       r.Method,
		WalletType: r.URL.Query().Get("wallet_type"),
		Wallet:     r.PathValue("wallet"),
		Payload:    payload,
	})
	if err != nil {
		s.observeLogin(r.Method, "denied")
		presenter.Err(w, r, err, "login failed")
		return
	}
	s.observeLogin(r.Method, "ok")
	presenter.JSON(w, r, resp, http.StatusOK)
}

func (s *Server) observeLogin(requestType, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveLogin(requestType, outcome)
	}
}

// handleAuthorities returns the authenticated caller's identity, so clients
// can inspect what their token grants.
func (s *Server) handleAuthorities(w http.ResponseWriter, r *http.Request) {
	client, err := s.enforcer.Authenticate(r.Context(), r)
	if err != nil {
		presenter.Err(w, r, err, "unauthorized")
		return
	}
	presenter.JSON(w, r, map[string]any{
		"client_id":      client.ID,
		"current_wallet": client.CurrentWallet,
		"wallets":        client.Wallets,
		"authorities":    client.Authorities,
	}, http.StatusOK)
}

// handleBoundWallet attaches a second wallet to the caller's profile. The
// second wallet proves ownership the same way a login does: it must have a
// pending challenge whose signature is presented in the body.
func (s *Server) handleBoundWallet(w http.ResponseWriter, r *http.Request) {
	client, err := s.enforcer.Authenticate(r.Context(), r)
	if err != nil {
		presenter.Err(w, r, err, "unauthorized")
		return
	}
	if s.bound == nil {
		presenter.Error(w, r, "wallet binding is not configured", http.StatusNotImplemented)
		return
	}

	walletSecond, err := auth.NormalizeWallet(r.PathValue("wallet"))
	if err != nil {
		presenter.Err(w, r, err, "binding failed")
		return
	}
	payload, err := decodePayload(r)
	if err != nil {
		presenter.Err(w, r, err, "binding failed")
		return
	}
	sign, _ := payload["sign"].(string)
	if sign == "" {
		presenter.Error(w, r, "missing sign field", http.StatusBadRequest)
		return
	}

	nonce, err := s.nonces.Consume(r.Context(), walletSecond)
	if err != nil {
		presenter.Err(w, r, err, "binding failed")
		return
	}
	if err := s.signatures.Check(r.Context(), *nonce, sign); err != nil {
		presenter.Err(w, r, err, "binding failed")
		return
	}

	status, err := s.bound.Bind(r.Context(), *client, walletSecond)
	if err != nil {
		presenter.Err(w, r, err, "binding failed")
		return
	}

	session, err := s.sessions.Issue(r.Context(), client.WalletType, walletSecond)
	if err != nil {
		presenter.Err(w, r, err, "binding failed")
		return
	}
	presenter.JSON(w, r, map[string]any{
		"status":        status,
		"token":         session.Token,
		"refresh_token": session.RefreshToken,
		"expires_at":    session.ExpiresAt,
	}, http.StatusOK)
}

// decodePayload reads an optional JSON object body. An empty body yields an
// empty payload; anything unparsable is a malformed request.
func decodePayload(r *http.Request) (map[string]any, error) {
	if r.Body == nil {
		return map[string]any{}, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, core.ErrMalformedRequest
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Join(core.ErrMalformedRequest, err)
	}
	return payload, nil
}
