// Package ghl talks to the CRM's REST API on behalf of a connected location.
package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/homedispo/crm-bridge/internal/entity"
	"go.uber.org/zap"
)

const serviceName = "crm"

// TokenProvider hands out an access token valid for immediate use.
type TokenProvider interface {
	GetValidToken(ctx context.Context, locationID string) (string, error)
}

type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
	tokens     TokenProvider
	logger     *zap.Logger
}

func NewClient(baseURL, version string, timeout time.Duration, tokens TokenProvider, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		version:    version,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger.Named("ghl"),
	}
}

// SearchDuplicate asks the CRM for an existing contact matching email or
// phone. It returns "" when there is none.
func (c *Client) SearchDuplicate(ctx context.Context, locationID, email, phone string) (string, error) {
	q := url.Values{}
	q.Set("locationId", locationID)
	if email != "" {
		q.Set("email", email)
	}
	if phone != "" {
		q.Set("number", phone)
	}

	status, body, err := c.do(ctx, http.MethodGet, locationID, "/contacts/search/duplicate", q, nil)
	if err != nil {
		return "", err
	}
	if !isSuccess(status) {
		return "", &entity.APIError{Service: serviceName, Status: status, Body: string(body)}
	}

	var out contactEnvelope
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode duplicate search: %w", err)
	}
	if out.Contact == nil {
		return "", nil
	}
	return out.Contact.ID, nil
}

func (c *Client) CreateContact(ctx context.Context, locationID string, payload ContactPayload) (CreateContactResult, error) {
	status, body, err := c.do(ctx, http.MethodPost, locationID, "/contacts", nil, payload)
	if err != nil {
		return CreateContactResult{}, err
	}

	if !isSuccess(status) {
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Meta.ContactID != "" {
			c.logger.Info("create rejected as duplicate",
				zap.String("location_id", locationID),
				zap.String("contact_id", eb.Meta.ContactID),
				zap.String("matching_field", eb.Meta.MatchingField))
			return CreateContactResult{DuplicateOf: eb.Meta.ContactID}, nil
		}
		return CreateContactResult{}, &entity.APIError{Service: serviceName, Status: status, Body: string(body)}
	}

	var out contactEnvelope
	if err := json.Unmarshal(body, &out); err != nil {
		return CreateContactResult{}, fmt.Errorf("decode created contact: %w", err)
	}
	if out.Contact == nil || out.Contact.ID == "" {
		return CreateContactResult{}, &entity.APIError{Service: serviceName, Status: status, Body: string(body)}
	}
	return CreateContactResult{ID: out.Contact.ID}, nil
}

// UpdateContact PUTs payload to the contact. A 2xx answer carrying an error
// field is still a failure.
func (c *Client) UpdateContact(ctx context.Context, locationID, contactID string, payload any) (UpdateContactResult, error) {
	status, body, err := c.do(ctx, http.MethodPut, locationID, "/contacts/"+url.PathEscape(contactID), nil, payload)
	if err != nil {
		return UpdateContactResult{}, err
	}
	if !isSuccess(status) {
		return UpdateContactResult{}, &entity.APIError{Service: serviceName, Status: status, Body: string(body)}
	}

	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.hasError() {
		return UpdateContactResult{}, &entity.APIError{Service: serviceName, Status: status, Body: string(body)}
	}

	res := UpdateContactResult{Status: status}
	if json.Valid(body) {
		res.Body = json.RawMessage(body)
	}
	return res, nil
}

func (c *Client) GetContact(ctx context.Context, locationID, contactID string) (*Contact, error) {
	status, body, err := c.do(ctx, http.MethodGet, locationID, "/contacts/"+url.PathEscape(contactID), nil, nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &entity.APIError{Service: serviceName, Status: status, Body: string(body)}
	}

	var out contactEnvelope
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode contact: %w", err)
	}
	if out.Contact == nil {
		return &Contact{ID: contactID}, nil
	}
	return out.Contact, nil
}

// CreateTask adds a task to the contact and returns the CRM's answer as-is.
func (c *Client) CreateTask(ctx context.Context, locationID, contactID string, task Task) (json.RawMessage, error) {
	path := "/contacts/" + url.PathEscape(contactID) + "/tasks"
	status, body, err := c.do(ctx, http.MethodPost, locationID, path, nil, task)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &entity.APIError{Service: serviceName, Status: status, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decode created task: invalid json")
	}
	return json.RawMessage(body), nil
}

// GetCustomFields returns the location's custom-field registry.
func (c *Client) GetCustomFields(ctx context.Context, locationID string) ([]CustomField, error) {
	path := "/locations/" + url.PathEscape(locationID) + "/customFields"
	status, body, err := c.do(ctx, http.MethodGet, locationID, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &entity.APIError{Service: serviceName, Status: status, Body: string(body)}
	}

	var out customFieldsEnvelope
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode custom fields: %w", err)
	}
	return out.CustomFields, nil
}

func (c *Client) GetLocation(ctx context.Context, locationID string) (*Location, error) {
	token, err := c.tokens.GetValidToken(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return c.getLocation(ctx, token, locationID)
}

// LocationName looks up the location with an explicit token, before any
// connection for it is stored.
func (c *Client) LocationName(ctx context.Context, accessToken, locationID string) (string, error) {
	loc, err := c.getLocation(ctx, accessToken, locationID)
	if err != nil {
		return "", err
	}
	return loc.Name, nil
}

func (c *Client) getLocation(ctx context.Context, token, locationID string) (*Location, error) {
	status, body, err := c.doWithToken(ctx, token, http.MethodGet, "/locations/"+url.PathEscape(locationID), nil, nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &entity.APIError{Service: serviceName, Status: status, Body: string(body)}
	}

	var out locationEnvelope
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}
	if out.Location.ID == "" {
		out.Location.ID = locationID
	}
	return &out.Location, nil
}

func (c *Client) do(ctx context.Context, method, locationID, path string, query url.Values, payload any) (int, []byte, error) {
	token, err := c.tokens.GetValidToken(ctx, locationID)
	if err != nil {
		return 0, nil, err
	}
	return c.doWithToken(ctx, token, method, path, query, payload)
}

func (c *Client) doWithToken(ctx context.Context, token, method, path string, query url.Values, payload any) (int, []byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}
	c.addAuthHeaders(req, token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if !isSuccess(resp.StatusCode) {
		c.logger.Warn("crm request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
	}
	return resp.StatusCode, body, nil
}

func (c *Client) addAuthHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Version", c.version)
	req.Header.Set("Accept", "application/json")
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
