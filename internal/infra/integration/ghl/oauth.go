package ghl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// TokenGrant is what the token endpoint issued for one location.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	LocationID   string
}

// GrantError is a grant the provider refused or that never completed.
// Body holds the provider's answer when there was one.
type GrantError struct {
	Status int
	Body   string
	Err    error
}

func (e *GrantError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return e.Err.Error()
}

func (e *GrantError) Unwrap() error { return e.Err }

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
}

// OAuthClient runs the authorization_code and refresh_token grants against
// the CRM's token endpoint.
type OAuthClient struct {
	cfg        *oauth2.Config
	httpClient *http.Client
}

func NewOAuthClient(c OAuthConfig) *OAuthClient {
	return &OAuthClient{
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Scopes:       c.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   c.AuthorizeURL,
				TokenURL:  c.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// AuthorizeURL is the consent page a tenant admin is sent to.
func (o *OAuthClient) AuthorizeURL(state string) string {
	return o.cfg.AuthCodeURL(state)
}

func (o *OAuthClient) Exchange(ctx context.Context, code string) (*TokenGrant, error) {
	tok, err := o.cfg.Exchange(o.withClient(ctx), code, oauth2.SetAuthURLParam("user_type", "Location"))
	if err != nil {
		return nil, grantError(err)
	}
	return toGrant(tok)
}

// Refresh trades a refresh token for a new access token. When the provider
// does not rotate the refresh token the old one is carried over.
func (o *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	ts := o.cfg.TokenSource(o.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return nil, grantError(err)
	}
	return toGrant(tok)
}

func (o *OAuthClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
}

// toGrant rejects a grant without a positive lifetime; storing one would
// make every later call refresh again.
func toGrant(tok *oauth2.Token) (*TokenGrant, error) {
	g := &TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn(tok),
	}
	if g.ExpiresIn <= 0 {
		return nil, &GrantError{Err: errors.New("token response carried no usable expires_in")}
	}
	if loc, ok := tok.Extra("locationId").(string); ok {
		g.LocationID = loc
	}
	return g, nil
}

func expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	return int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
}

func grantError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		ge := &GrantError{Body: string(re.Body), Err: err}
		if re.Response != nil {
			ge.Status = re.Response.StatusCode
		}
		return ge
	}
	return &GrantError{Err: fmt.Errorf("token endpoint: %w", err)}
}
