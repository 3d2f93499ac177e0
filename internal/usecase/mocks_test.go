package usecase_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/homedispo/crm-bridge/internal/entity"
	"github.com/homedispo/crm-bridge/internal/infra/integration/docusign"
	"github.com/homedispo/crm-bridge/internal/infra/integration/ghl"
	"github.com/stretchr/testify/mock"
)

// MockConnectionStore
type MockConnectionStore struct {
	mock.Mock
}

func (m *MockConnectionStore) Get(ctx context.Context, locationID string) (*entity.Connection, error) {
	args := m.Called(ctx, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Connection), args.Error(1)
}

func (m *MockConnectionStore) Upsert(ctx context.Context, c *entity.Connection) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// MockOAuth
type MockOAuth struct {
	mock.Mock
}

func (m *MockOAuth) AuthorizeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockOAuth) Exchange(ctx context.Context, code string) (*ghl.TokenGrant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ghl.TokenGrant), args.Error(1)
}

func (m *MockOAuth) Refresh(ctx context.Context, refreshToken string) (*ghl.TokenGrant, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ghl.TokenGrant), args.Error(1)
}

// MockLocationNamer
type MockLocationNamer struct {
	mock.Mock
}

func (m *MockLocationNamer) LocationName(ctx context.Context, accessToken, locationID string) (string, error) {
	args := m.Called(ctx, accessToken, locationID)
	return args.String(0), args.Error(1)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyRelink(ctx context.Context, locationID, detail string) error {
	args := m.Called(ctx, locationID, detail)
	return args.Error(0)
}

// MockContactGateway
type MockContactGateway struct {
	mock.Mock
}

func (m *MockContactGateway) SearchDuplicate(ctx context.Context, locationID, email, phone string) (string, error) {
	args := m.Called(ctx, locationID, email, phone)
	return args.String(0), args.Error(1)
}

func (m *MockContactGateway) CreateContact(ctx context.Context, locationID string, payload ghl.ContactPayload) (ghl.CreateContactResult, error) {
	args := m.Called(ctx, locationID, payload)
	return args.Get(0).(ghl.CreateContactResult), args.Error(1)
}

func (m *MockContactGateway) UpdateContact(ctx context.Context, locationID, contactID string, payload any) (ghl.UpdateContactResult, error) {
	args := m.Called(ctx, locationID, contactID, payload)
	return args.Get(0).(ghl.UpdateContactResult), args.Error(1)
}

func (m *MockContactGateway) GetContact(ctx context.Context, locationID, contactID string) (*ghl.Contact, error) {
	args := m.Called(ctx, locationID, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ghl.Contact), args.Error(1)
}

func (m *MockContactGateway) GetCustomFields(ctx context.Context, locationID string) ([]ghl.CustomField, error) {
	args := m.Called(ctx, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ghl.CustomField), args.Error(1)
}

// MockPropertyRepository
type MockPropertyRepository struct {
	mock.Mock
}

func (m *MockPropertyRepository) FindByID(ctx context.Context, customerID, propertyID string) (*entity.Property, error) {
	args := m.Called(ctx, customerID, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Property), args.Error(1)
}

// MockSignatureGateway
type MockSignatureGateway struct {
	mock.Mock
}

func (m *MockSignatureGateway) SendEnvelope(ctx context.Context, req docusign.EnvelopeRequest) (*docusign.EnvelopeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*docusign.EnvelopeResult), args.Error(1)
}

// MockCountyStore
type MockCountyStore struct {
	mock.Mock
}

func (m *MockCountyStore) Save(ctx context.Context, rec *entity.CountyRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockCountyStore) ListByTenant(ctx context.Context, tenantID string, limit int32) ([]entity.CountyRecord, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CountyRecord), args.Error(1)
}

// MockForwarder
type MockForwarder struct {
	mock.Mock
}

func (m *MockForwarder) Forward(ctx context.Context, payload map[string]any) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// memoryStore is a ConnectionStore that keeps the last upsert.
type memoryStore struct {
	mu    sync.Mutex
	conns map[string]*entity.Connection
}

func newMemoryStore() *memoryStore {
	return &memoryStore{conns: make(map[string]*entity.Connection)}
}

func (s *memoryStore) Get(_ context.Context, locationID string) (*entity.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[locationID]
	if !ok {
		return nil, &entity.NotFoundError{Resource: "connection", Key: locationID}
	}
	cp := *c
	return &cp, nil
}

func (s *memoryStore) Upsert(_ context.Context, c *entity.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.conns[c.LocationID] = &cp
	return nil
}

type countingRecorder struct {
	refresh      map[string]int
	rows         map[string]int
	integrations map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{refresh: map[string]int{}, rows: map[string]int{}, integrations: map[string]int{}}
}

func (r *countingRecorder) TokenRefresh(result string)      { r.refresh[result]++ }
func (r *countingRecorder) ReconcileRow(outcome string)     { r.rows[outcome]++ }
func (r *countingRecorder) IntegrationError(service string) { r.integrations[service]++ }

// MockTaskGateway
type MockTaskGateway struct {
	mock.Mock
}

func (m *MockTaskGateway) CreateTask(ctx context.Context, locationID, contactID string, task ghl.Task) (json.RawMessage, error) {
	args := m.Called(ctx, locationID, contactID, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}
