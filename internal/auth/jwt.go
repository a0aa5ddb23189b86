package auth

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// JWTService issues and verifies the gateway's own session tokens.
// Tokens are stateless; expiry is enforced at parse time.
type JWTService struct {
	signingKey []byte
	issuer     string
	lifetime   time.Duration
}

func NewJWTService(cfg config.JWTConfig) (*JWTService, error) {
	key, err := base64.StdEncoding.DecodeString(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("decoding jwt key: %w", err)
	}
	return &JWTService{
		signingKey: key,
		issuer:     cfg.Issuer,
		lifetime:   cfg.Lifetime,
	}, nil
}

// Create signs a new session token for the client.
func (s *JWTService) Create(client core.Client) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.lifetime)

	claims := jwt.MapClaims{
		"iss":            s.issuer,
		"sub":            client.ID,
		"jti":            client.CurrentWallet,
		"iat":            now.Unix(),
		"exp":            exp.Unix(),
		"currentWallet":  client.CurrentWallet,
		"profileWallets": client.Wallets,
		"walletType":     client.WalletType,
		"authorities":    client.Authorities,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies the token signature and expiry and returns the client it
// was issued for. All failures surface as ErrUnauthorized.
func (s *JWTService) Parse(tokenString string) (*core.Client, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: parsing token: %v", core.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid token claims", core.ErrUnauthorized)
	}

	client := &core.Client{
		CurrentWallet: stringClaim(claims, "currentWallet"),
		WalletType:    stringClaim(claims, "walletType"),
		Wallets:       stringsClaim(claims, "profileWallets"),
		Authorities:   stringsClaim(claims, "authorities"),
	}
	if sub, err := claims.GetSubject(); err == nil {
		client.ID = sub
	}
	return client, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}

func stringsClaim(claims jwt.MapClaims, key string) []string {
	raw, ok := claims[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
