package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/audit"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/auth"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/gateway"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/identity"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/metrics"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/policy"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/store"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/validate"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/wallet"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Listen
		}

		srv, auditor, err := buildServer(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := auditor.Close(); err != nil {
				log.Warn().Err(err).Msg("closing auditor")
			}
		}()

		server := &http.Server{
			Addr:    addr,
			Handler: srv.Routes(),
		}

		go func() {
			log.Info().Msgf("Starting gateway on %s, proxying to %s...", addr, cfg.Upstream)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down gateway...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Gateway exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "address to listen on (overrides the config file)")
}

// buildServer wires every component from the loaded configuration.
func buildServer(ctx context.Context, cfg *config.Config) (*gateway.Server, core.Auditor, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var (
		nonceStore   core.NonceStore
		refreshStore core.RefreshStore
		resultCache  core.ResultCache
	)
	if cfg.Cache.Type == "redis" {
		log.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("Using Redis-backed stores...")
		redisClient := store.NewRedisClient(cfg.Cache.Redis)
		nonceStore = store.NewRedisNonceStore(redisClient)
		refreshStore = store.NewRedisRefreshStore(redisClient)
		resultCache = store.NewRedisResultCache(redisClient)
	} else {
		nonceStore = store.NewInMemoryNonceStore()
		refreshStore = store.NewInMemoryRefreshStore()
		resultCache = store.NewInMemoryResultCache()
	}

	auditor, err := audit.Build(ctx, cfg.Audit)
	if err != nil {
		return nil, nil, fmt.Errorf("building auditor: %w", err)
	}

	var m *metrics.Metrics
	var validationObserver validate.Observer
	if cfg.Metrics.Enabled {
		m = metrics.New()
		validationObserver = m
	}

	jwtService, err := auth.NewJWTService(cfg.Auth.JWT)
	if err != nil {
		return nil, nil, fmt.Errorf("building jwt service: %w", err)
	}
	nonceService := auth.NewNonceService(cfg.Auth.Nonce, nonceStore)
	refreshService := auth.NewRefreshService(cfg.Auth.Refresh, refreshStore)
	signatureVerifier, err := auth.NewSignatureVerifier(cfg.Auth.Signature, httpClient)
	if err != nil {
		return nil, nil, fmt.Errorf("building signature verifier: %w", err)
	}

	var identityProvider core.IdentityProvider
	if cfg.Identity.Claims != nil {
		identityProvider = identity.NewClaimsClient(*cfg.Identity.Claims, httpClient)
	}
	var oidcVerifier *identity.OIDCVerifier
	if cfg.Identity.OIDC != nil {
		oidcVerifier, err = identity.NewOIDCVerifier(ctx, *cfg.Identity.OIDC)
		if err != nil {
			return nil, nil, fmt.Errorf("building oidc verifier: %w", err)
		}
	}

	resolver, err := wallet.NewResolver(cfg.MultiWallet, httpClient)
	if err != nil {
		return nil, nil, fmt.Errorf("building wallet resolver: %w", err)
	}
	boundService := wallet.NewBoundService(cfg.MultiWallet.Bound, httpClient)

	hooks := make([]core.LoginHook, 0, len(cfg.Auth.Hooks))
	for _, hookCfg := range cfg.Auth.Hooks {
		hooks = append(hooks, auth.NewHTTPHook(hookCfg, httpClient))
	}

	sessions := &auth.SessionIssuer{
		Identity: identityProvider,
		Wallets:  resolver,
		JWT:      jwtService,
		Refresh:  refreshService,
	}
	processor := auth.NewProcessor(hooks)
	processor.Register(http.MethodGet, &auth.ChallengeHandler{Nonces: nonceService})
	processor.Register(http.MethodPost, &auth.LoginHandler{
		Nonces:     nonceService,
		Signatures: signatureVerifier,
		Sessions:   sessions,
	})
	processor.Register(http.MethodPut, &auth.RefreshHandler{
		Refresh:  refreshService,
		Sessions: sessions,
	})

	log.Info().Msg("Initializing policy sets...")
	securitySet, err := policy.NewSet("security",
		cfg.Security.Method, cfg.Security.MatchType, cfg.Security.BaseAuthorities, cfg.Security.Routes)
	if err != nil {
		return nil, nil, fmt.Errorf("building security policy set: %w", err)
	}
	validationSet, err := policy.NewSet("validation",
		cfg.Validation.Policy.Method, cfg.Validation.Policy.MatchType,
		cfg.Validation.Policy.BaseAuthorities, cfg.Validation.Policy.Routes)
	if err != nil {
		return nil, nil, fmt.Errorf("building validation policy set: %w", err)
	}

	log.Info().Msg("Initializing validation providers...")
	validators, err := validate.BuildRegistry(cfg.Validation.Providers, resultCache, httpClient, validationObserver)
	if err != nil {
		return nil, nil, fmt.Errorf("building validation providers: %w", err)
	}
	chain := validate.NewChain(validators, cfg.Validation.DefaultType)

	var verdictObserver gateway.VerdictObserver
	if m != nil {
		verdictObserver = m
	}
	enforcer := gateway.NewEnforcer(gateway.EnforcerParams{
		Security:           securitySet,
		Validation:         validationSet,
		JWT:                jwtService,
		OIDC:               oidcVerifier,
		Chain:              chain,
		ValidationDisabled: cfg.Validation.Disabled,
		TokenHeader:        cfg.Headers.ValidationToken,
		TypeHeader:         cfg.Headers.ValidationType,
		Observer:           verdictObserver,
	})

	proxy, err := gateway.NewProxy(cfg.Upstream, cfg.BasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("building proxy: %w", err)
	}

	srv := gateway.NewServer(gateway.ServerParams{
		Enforcer:   enforcer,
		Proxy:      proxy,
		Processor:  processor,
		Sessions:   sessions,
		Nonces:     nonceService,
		Signatures: signatureVerifier,
		Bound:      boundService,
		Auditor:    auditor,
		Metrics:    m,
	})
	return srv, auditor, nil
}
