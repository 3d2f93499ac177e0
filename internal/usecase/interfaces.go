package usecase

import (
	"context"

	"github.com/homedispo/crm-bridge/internal/entity"
	"github.com/homedispo/crm-bridge/internal/infra/integration/docusign"
	"github.com/homedispo/crm-bridge/internal/infra/integration/ghl"
)

// ConnectionStore persists one Connection per location. Upsert must be a
// single atomic write.
type ConnectionStore interface {
	Get(ctx context.Context, locationID string) (*entity.Connection, error)
	Upsert(ctx context.Context, c *entity.Connection) error
}

type TokenCipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(cipherText string) (string, error)
}

type OAuthProvider interface {
	AuthorizeURL(state string) string
	Exchange(ctx context.Context, code string) (*ghl.TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*ghl.TokenGrant, error)
}

type LocationNamer interface {
	LocationName(ctx context.Context, accessToken, locationID string) (string, error)
}

// RelinkNotifier tells an operator that a location must be re-authorized.
type RelinkNotifier interface {
	NotifyRelink(ctx context.Context, locationID, detail string) error
}

type ContactGateway interface {
	SearchDuplicate(ctx context.Context, locationID, email, phone string) (string, error)
	CreateContact(ctx context.Context, locationID string, payload ghl.ContactPayload) (ghl.CreateContactResult, error)
	UpdateContact(ctx context.Context, locationID, contactID string, payload any) (ghl.UpdateContactResult, error)
	GetContact(ctx context.Context, locationID, contactID string) (*ghl.Contact, error)
	GetCustomFields(ctx context.Context, locationID string) ([]ghl.CustomField, error)
}

type PropertyRepository interface {
	FindByID(ctx context.Context, customerID, propertyID string) (*entity.Property, error)
}

type SignatureGateway interface {
	SendEnvelope(ctx context.Context, req docusign.EnvelopeRequest) (*docusign.EnvelopeResult, error)
}

type CountyRecordStore interface {
	Save(ctx context.Context, rec *entity.CountyRecord) error
	ListByTenant(ctx context.Context, tenantID string, limit int32) ([]entity.CountyRecord, error)
}

// CountyForwarder delivers an ingested record downstream, either inline or
// through the queue.
type CountyForwarder interface {
	Forward(ctx context.Context, payload map[string]any) error
}

// Recorder receives domain counters. See middleware.DomainMetrics.
type Recorder interface {
	TokenRefresh(result string)
	ReconcileRow(outcome string)
	IntegrationError(service string)
}

type nopRecorder struct{}

func (nopRecorder) TokenRefresh(string)     {}
func (nopRecorder) ReconcileRow(string)     {}
func (nopRecorder) IntegrationError(string) {}
