// Package oidc verifies caller bearer tokens against an OIDC issuer.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/ivis-ai/rag-gateway/internal/core"
	"github.com/ivis-ai/rag-gateway/internal/domain/auth"
	apperrors "github.com/ivis-ai/rag-gateway/internal/errors"
)

// Provider implements the TokenVerifier interface using go-oidc.
type Provider struct {
	verifier *gooidc.IDTokenVerifier
}

var _ core.TokenVerifier = (*Provider)(nil)

// ProviderConfig holds configuration for the OIDC token verifier.
type ProviderConfig struct {
	ClientID  string
	IssuerURL string

	// HTTPClient is used for discovery and JWKS fetches.
	// Optional, defaults to a 30s-timeout client.
	HTTPClient *http.Client
}

// NewProvider runs OIDC discovery against the issuer and prepares a
// token verifier.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(config.IssuerURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Provider{
		verifier: op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
	}, nil
}

// tokenClaims is the subset of ID token claims the gateway uses.
type tokenClaims struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
}

// Verify validates a raw bearer token and returns the caller's identity.
func (p *Provider) Verify(ctx context.Context, rawToken string) (auth.Identity, error) {
	if rawToken == "" {
		return auth.Identity{}, apperrors.Unauthorized("missing bearer token")
	}

	idTok, err := p.verifier.Verify(ctx, rawToken)
	if err != nil {
		return auth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid bearer token")
	}

	var claims tokenClaims
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return auth.Identity{}, apperrors.Unauthorized("unreadable token claims")
	}

	subject := claims.PreferredUsername
	if subject == "" {
		subject = claims.Sub
	}
	if subject == "" {
		return auth.Identity{}, apperrors.Unauthorized("token carries no subject")
	}

	return auth.Identity{
		Subject: subject,
		Email:   claims.Email,
	}, nil
}
