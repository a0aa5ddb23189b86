package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// HTTPHook calls an external service around login requests, e.g. a profile
// service that provisions an account on first login. The wallet is appended
// to the configured URI and repeated in the X-Client-Wallet header.
type HTTPHook struct {
	name         string
	uri          string
	method       string
	requestTypes []string
	phases       []core.LoginPhase
	client       *http.Client
}

var _ core.LoginHook = (*HTTPHook)(nil)

func NewHTTPHook(cfg config.HookConfig, client *http.Client) *HTTPHook {
	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	phases := make([]core.LoginPhase, 0, len(cfg.Phases))
	for _, p := range cfg.Phases {
		phases = append(phases, core.LoginPhase(p))
	}
	if len(phases) == 0 {
		phases = []core.LoginPhase{core.PhaseAfter}
	}
	types := cfg.RequestTypes
	if len(types) == 0 {
		types = []string{http.MethodPost}
	}
	return &HTTPHook{
		name:         cfg.Name,
		uri:          cfg.URI,
		method:       method,
		requestTypes: types,
		phases:       phases,
		client:       client,
	}
}

func (h *HTTPHook) Phases() []core.LoginPhase {
	return h.phases
}

func (h *HTTPHook) RequestTypes() []string {
	return h.requestTypes
}

func (h *HTTPHook) Process(ctx context.Context, wallet string) error {
	uri := strings.TrimSuffix(h.uri, "/") + "/" + wallet

	req, err := http.NewRequestWithContext(ctx, h.method, uri, nil)
	if err != nil {
		return fmt.Errorf("building hook request: %w", err)
	}
	req.Header.Set("X-Client-Wallet", wallet)

	log.Ctx(ctx).Debug().
		Str("hook", h.name).
		Str("uri", uri).
		Msg("calling login hook")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling login hook %q: %w", h.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("login hook %q returned status %d", h.name, resp.StatusCode)
	}
	return nil
}
