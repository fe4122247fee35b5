// Package devauth provides a config-driven TokenVerifier for local
// development. Every request is attributed to the configured identity.
package devauth

import (
	"context"
	"errors"

	"github.com/ivis-ai/rag-gateway/internal/core"
	"github.com/ivis-ai/rag-gateway/internal/domain/auth"
)

// Config controls the dev auth provider behavior.
type Config struct {
	Subject string
	Email   string
}

// Provider implements core.TokenVerifier for local development.
// It accepts any token, including none, and returns the configured
// identity.
type Provider struct {
	identity auth.Identity
}

var _ core.TokenVerifier = (*Provider)(nil)

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Subject == "" {
		return nil, errors.New("dev auth: Subject is required")
	}
	return &Provider{
		identity: auth.Identity{
			Subject: cfg.Subject,
			Email:   cfg.Email,
		},
	}, nil
}

// Verify ignores the token and returns the dev identity.
func (p *Provider) Verify(_ context.Context, _ string) (auth.Identity, error) {
	return p.identity, nil
}
