package gateway

import (
	"net/http"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/audit"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/auth"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/gateway/middleware"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/metrics"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/wallet"
)

type Server struct {
	enforcer   *Enforcer
	proxy      *Proxy
	processor  *auth.Processor
	sessions   *auth.SessionIssuer
	nonces     *auth.NonceService
	signatures core.SignatureVerifier
	bound      *wallet.BoundService
	auditor    core.Auditor
	metrics    *metrics.Metrics
}

type ServerParams struct {
	Enforcer   *Enforcer
	Proxy      *Proxy
	Processor  *auth.Processor
	Sessions   *auth.SessionIssuer
	Nonces     *auth.NonceService
	Signatures core.SignatureVerifier
	Bound      *wallet.BoundService
	Auditor    core.Auditor
	Metrics    *metrics.Metrics
}

func NewServer(params ServerParams) *Server {
	auditor := params.Auditor
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	return &Server{
		enforcer:   params.Enforcer,
		proxy:      params.Proxy,
		processor:  params.Processor,
		sessions:   params.Sessions,
		nonces:     params.Nonces,
		signatures: params.Signatures,
		bound:      params.Bound,
		auditor:    auditor,
		metrics:    params.Metrics,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)

	// login flow
	mux.HandleFunc("GET "+LoginRoute, s.handleLogin)
	mux.HandleFunc("POST "+LoginRoute, s.handleLogin)
	mux.HandleFunc("PUT "+LoginRoute, s.handleLogin)
	mux.HandleFunc("GET "+AuthoritiesRoute, s.handleAuthorities)
	mux.HandleFunc("PUT "+BoundWalletRoute, s.handleBoundWallet)

	if s.metrics != nil {
		mux.Handle("GET "+MetricsRoute, s.metrics.Handler())
	}

	// everything else goes through the policy enforcer to the upstream
	mux.HandleFunc("/", s.handleProxy)

	var handler http.Handler = mux
	if s.metrics != nil {
		handler = middleware.MetricsMiddleware(s.metrics)(handler)
	}
	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				handler)))
}
