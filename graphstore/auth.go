package graphstore

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type accessTokenKey struct{}

// WithAccessToken returns a context whose graph store requests are
// authorized with token instead of the client's own credentials. Workflow
// executions use it to act on behalf of the triggering user.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFrom returns the user access token carried by ctx.
func AccessTokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey{}).(string)
	return token, ok && token != ""
}

// Credentials configures how a Client authenticates.
type Credentials struct {
	// AccessToken is a static bearer token. It takes precedence over the
	// client credentials grant.
	AccessToken string `yaml:"access_token" json:"access_token,omitempty"`

	// ClientID and ClientSecret enable the OAuth2 client credentials grant
	// against TokenURL.
	ClientID     string `yaml:"client_id" json:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret" json:"client_secret,omitempty"`
	TokenURL     string `yaml:"token_url" json:"token_url,omitempty"`
}

// TokenSource returns the OAuth2 token source for the credentials, or nil
// when no credentials are configured.
func (c Credentials) TokenSource(ctx context.Context) oauth2.TokenSource {
	if c.AccessToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.AccessToken, TokenType: "Bearer"})
	}
	if c.ClientID == "" || c.TokenURL == "" {
		return nil
	}
	cfg := &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
	}
	return cfg.TokenSource(ctx)
}
