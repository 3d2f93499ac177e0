// Package docusign creates signature envelopes from server templates using
// the JWT bearer grant.
package docusign

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/homedispo/crm-bridge/internal/entity"
	"go.uber.org/zap"
)

const (
	serviceName = "docusign"
	jwtGrant    = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

type Config struct {
	IntegrationKey string
	UserID         string
	AccountID      string
	OAuthBaseURL   string
	APIBaseURL     string
	PrivateKeyPEM  string
	SignerName     string
	SignerEmail    string
}

type Client struct {
	HTTPClient *http.Client

	cfg    Config
	key    *rsa.PrivateKey
	layout *Layout
	logger *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

func NewClient(cfg Config, layout *Layout, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(normalizePEM(cfg.PrivateKeyPEM)))
	if err != nil {
		return nil, fmt.Errorf("parse docusign private key: %w", err)
	}
	cfg.OAuthBaseURL = strings.TrimRight(cfg.OAuthBaseURL, "/")
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		key:        key,
		layout:     layout,
		logger:     logger.Named("docusign"),
		now:        time.Now,
	}, nil
}

// normalizePEM accepts keys pasted into env files with literal \n.
func normalizePEM(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

// EnsureAuthenticated keeps a cached access token, renewing it 30s before
// it lapses.
func (c *Client) EnsureAuthenticated(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Add(30*time.Second).Before(c.tokenExpiry) {
		return c.token, nil
	}

	assertion, err := c.assertion()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", jwtGrant)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OAuthBaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("docusign auth request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("jwt grant rejected", zap.Int("status", resp.StatusCode))
		return "", &entity.APIError{Service: serviceName, Status: resp.StatusCode, Body: string(body)}
	}

	var data tokenResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("decode docusign token: %w", err)
	}
	if data.AccessToken == "" {
		return "", &entity.APIError{Service: serviceName, Status: resp.StatusCode, Body: string(body)}
	}

	exp := data.ExpiresIn
	if exp == 0 {
		exp = 3600
	}
	c.token = data.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(exp) * time.Second)

	c.logger.Debug("access token renewed")
	return c.token, nil
}

func (c *Client) assertion() (string, error) {
	now := c.now()
	aud := strings.TrimPrefix(strings.TrimPrefix(c.cfg.OAuthBaseURL, "https://"), "http://")

	claims := jwt.MapClaims{
		"iss":   c.cfg.IntegrationKey,
		"sub":   c.cfg.UserID,
		"aud":   aud,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"scope": "signature impersonation",
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign docusign assertion: %w", err)
	}
	return signed, nil
}

// FindTemplate returns the id of the template whose name matches exactly.
func (c *Client) FindTemplate(ctx context.Context, token, name string) (string, error) {
	q := url.Values{}
	q.Set("search_text", name)
	endpoint := fmt.Sprintf("%s/accounts/%s/templates?%s", c.cfg.APIBaseURL, c.cfg.AccountID, q.Encode())

	status, body, err := c.call(ctx, token, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &entity.APIError{Service: serviceName, Status: status, Body: string(body)}
	}

	var list templateList
	if err := json.Unmarshal(body, &list); err != nil {
		return "", fmt.Errorf("decode templates: %w", err)
	}
	for _, t := range list.EnvelopeTemplates {
		if t.Name == name {
			return t.TemplateID, nil
		}
	}
	return "", &entity.NotFoundError{Resource: "template", Key: name}
}

func (c *Client) SendEnvelope(ctx context.Context, req EnvelopeRequest) (*EnvelopeResult, error) {
	token, err := c.EnsureAuthenticated(ctx)
	if err != nil {
		return nil, err
	}

	templateID, err := c.FindTemplate(ctx, token, req.TemplateName)
	if err != nil {
		return nil, err
	}

	def := c.buildEnvelope(templateID, req)
	endpoint := fmt.Sprintf("%s/accounts/%s/envelopes", c.cfg.APIBaseURL, c.cfg.AccountID)

	status, body, err := c.call(ctx, token, http.MethodPost, endpoint, def)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, &entity.APIError{Service: serviceName, Status: status, Body: string(body)}
	}

	var res EnvelopeResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	c.logger.Info("envelope created",
		zap.String("envelope_id", res.EnvelopeID),
		zap.String("template", req.TemplateName),
		zap.String("contact_id", req.ContactID))
	return &res, nil
}

func (c *Client) buildEnvelope(templateID string, req EnvelopeRequest) envelopeDefinition {
	signer := Signer{
		RoleName:    c.layout.RoleName,
		RecipientID: uuid.NewString(),
		Name:        c.cfg.SignerName,
		Email:       c.cfg.SignerEmail,
		Tabs:        BuildTabs(c.layout.Templates[req.TemplateName], req.Values),
	}

	inline := inlineTemplate{Sequence: "1"}
	inline.Recipients.Signers = []Signer{signer}

	def := envelopeDefinition{
		EmailSubject: req.EmailSubject,
		Status:       c.layout.EnvelopeStatus,
		CompositeTemplates: []compositeTemplate{{
			ServerTemplates: []serverTemplate{{Sequence: "1", TemplateID: templateID}},
			InlineTemplates: []inlineTemplate{inline},
		}},
	}
	if req.ContactID != "" {
		def.CustomFields = &customFields{TextCustomFields: []textCustomField{
			{Name: "contactId", Value: req.ContactID, Show: "false"},
		}}
	}
	return def
}

// BuildTabs fills every tab label mapped to a non-blank value.
func BuildTabs(layout TemplateTabs, values map[string]string) Tabs {
	return Tabs{
		TextTabs:     fillTabs(layout.TextTabs, values),
		FullNameTabs: fillTabs(layout.FullNameTabs, values),
	}
}

func fillTabs(mapping map[string][]string, values map[string]string) []Tab {
	tabs := []Tab{}
	for key, labels := range mapping {
		v := values[key]
		if v == "" || v == "N/A" || v == "None" {
			continue
		}
		for _, label := range labels {
			if label == "" {
				continue
			}
			tabs = append(tabs, Tab{TabLabel: label, Value: v})
		}
	}
	return tabs
}

func (c *Client) call(ctx context.Context, token, method, endpoint string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("docusign %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}
