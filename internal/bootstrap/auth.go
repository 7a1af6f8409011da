package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spaarke-dev/spaarke-sub016/config"
	"github.com/spaarke-dev/spaarke-sub016/internal/adapters/obo"
	"github.com/spaarke-dev/spaarke-sub016/internal/adapters/oidc"
	"github.com/spaarke-dev/spaarke-sub016/internal/adapters/statictoken"
	"github.com/spaarke-dev/spaarke-sub016/internal/ports"
)

// AuthBuildConfig contains configuration for the credential edge: the inbound
// token verifier and the outbound exchange client.
type AuthBuildConfig struct {
	Auth     config.AuthConfig
	Exchange config.ExchangeConfig
	Logger   *slog.Logger
}

// AuthComponents groups the verifier and exchanger built from one auth
// configuration.
type AuthComponents struct {
	Verifier  ports.TokenVerifier
	Exchanger *obo.Exchanger
}

// BuildAuth creates the token verifier for the configured auth mode and the
// on-behalf-of exchanger. Unlike most optional subsystems, a broken auth
// configuration is fatal: without a verifier every request would be rejected,
// and without an exchanger no downstream call could be made.
func BuildAuth(ctx context.Context, cfg AuthBuildConfig) (AuthComponents, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Auth.Mode {
	case config.AuthModeStatic:
		return buildStaticAuth(cfg, logger)
	case config.AuthModeOIDC:
		return buildOIDCAuth(ctx, cfg, logger)
	default:
		return AuthComponents{}, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

func buildStaticAuth(cfg AuthBuildConfig, logger *slog.Logger) (AuthComponents, error) {
	tokens, err := statictoken.ParseTokens(cfg.Auth.Static.Tokens)
	if err != nil {
		return AuthComponents{}, fmt.Errorf("parse static tokens: %w", err)
	}

	verifier, err := statictoken.NewVerifier(statictoken.Config{
		Tokens:   tokens,
		TenantID: cfg.Auth.Static.TenantID,
		TTL:      cfg.Auth.Static.TTL,
	})
	if err != nil {
		return AuthComponents{}, fmt.Errorf("create static verifier: %w", err)
	}

	logger.Warn("static token verifier active; do not use outside development",
		"tokens", len(tokens),
	)

	// Static mode has no issuer to discover a token endpoint from, so the
	// exchange URL must be given explicitly.
	if cfg.Exchange.TokenURL == "" {
		return AuthComponents{}, fmt.Errorf("EXCHANGE_TOKEN_URL is required when auth mode is %q", config.AuthModeStatic)
	}

	exchanger, err := buildExchanger(cfg.Exchange, cfg.Exchange.TokenURL)
	if err != nil {
		return AuthComponents{}, err
	}

	return AuthComponents{Verifier: verifier, Exchanger: exchanger}, nil
}

func buildOIDCAuth(ctx context.Context, cfg AuthBuildConfig, logger *slog.Logger) (AuthComponents, error) {
	oidcCfg := cfg.Auth.OIDC
	if oidcCfg.IssuerURL == "" || oidcCfg.Audience == "" {
		return AuthComponents{}, fmt.Errorf(
			"oidc auth requires issuer and audience (issuer_empty=%t audience_empty=%t)",
			oidcCfg.IssuerURL == "", oidcCfg.Audience == "",
		)
	}

	provider, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
		IssuerURL:   oidcCfg.IssuerURL,
		Audience:    oidcCfg.Audience,
		GroupsClaim: oidcCfg.GroupsClaim,
	})
	if err != nil {
		return AuthComponents{}, fmt.Errorf("create oidc provider: %w", err)
	}

	// Prefer an explicit token URL; otherwise the issuer's discovered
	// endpoint serves both inbound verification and outbound exchange.
	tokenURL := cfg.Exchange.TokenURL
	if tokenURL == "" {
		tokenURL = provider.TokenURL()
		logger.Info("exchange token endpoint discovered from issuer", "token_url", tokenURL)
	}

	exchanger, err := buildExchanger(cfg.Exchange, tokenURL)
	if err != nil {
		return AuthComponents{}, err
	}

	return AuthComponents{Verifier: provider, Exchanger: exchanger}, nil
}

func buildExchanger(cfg config.ExchangeConfig, tokenURL string) (*obo.Exchanger, error) {
	exchanger, err := obo.NewExchanger(obo.ExchangerConfig{
		TokenURL:     tokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		Timeout:      cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create credential exchanger: %w", err)
	}
	return exchanger, nil
}
