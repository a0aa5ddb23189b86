package identity

import (
	"context"
	"fmt"

	gooidc "github.com/coreos/go-oidc/v3/oidc"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// OIDCVerifier validates identity-server bearer tokens against the issuer's
// published keys. It is used for policy sets with the IDENTITY_SERVER auth
// method instead of the gateway's own wallet JWTs.
type OIDCVerifier struct {
	verifier         *gooidc.IDTokenVerifier
	authoritiesClaim string
}

func NewOIDCVerifier(ctx context.Context, cfg config.OIDCConfig) (*OIDCVerifier, error) {
	provider, err := gooidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering oidc provider: %w", err)
	}
	claim := cfg.AuthoritiesClaim
	if claim == "" {
		claim = "authorities"
	}
	return &OIDCVerifier{
		verifier:         provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		authoritiesClaim: claim,
	}, nil
}

// Verify checks the raw bearer token and maps its claims onto a client.
// Any verification failure surfaces as ErrUnauthorized.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*core.Client, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: verifying identity token: %v", core.ErrUnauthorized, err)
	}

	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: reading identity token claims: %v", core.ErrUnauthorized, err)
	}

	return &core.Client{
		ID:          token.Subject,
		Authorities: stringsField(claims, v.authoritiesClaim),
	}, nil
}
