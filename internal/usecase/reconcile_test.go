package usecase_test

import (
	"context"
	"testing"

	"github.com/homedispo/crm-bridge/internal/entity"
	"github.com/homedispo/crm-bridge/internal/infra/integration/ghl"
	"github.com/homedispo/crm-bridge/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testRegistry = []ghl.CustomField{
	{ID: "f-pa", Name: "Property Address"},
	{ID: "f-pa2", Name: "Property Address 2"},
	{ID: "f-pa3", Name: "Property Address 3"},
	{ID: "f-pa4", Name: "Property Address 4"},
	{ID: "f-pa5", Name: "Property Address 5"},
	{ID: "f-mot", Name: "Motivation"},
}

var testMapping = entity.FieldMapping{
	entity.FieldFirstName:       "First",
	entity.FieldLastName:        "Last",
	entity.FieldEmail:           "Email Address",
	entity.FieldPhone:           "Phone Number",
	entity.FieldPropertyAddress: "Street",
	entity.FieldPropertyCity:    "City",
	entity.FieldPropertyState:   "State",
	entity.FieldPropertyZip:     "Zip",
	entity.FieldTag:             "Tags",
}

func newReconciler(crm *MockContactGateway) *usecase.Reconciler {
	crm.On("GetCustomFields", mock.Anything, "loc-1").Return(testRegistry, nil)
	return usecase.NewReconciler(crm, zap.NewNop())
}

func hasField(fields []ghl.CustomFieldValue, id, value string) bool {
	for _, f := range fields {
		if f.ID == id && f.Value == value {
			return true
		}
	}
	return false
}

func TestReconcile_PhoneOnlyRowIsCreated(t *testing.T) {
	ctx := context.Background()
	crm := new(MockContactGateway)
	r := newReconciler(crm)

	crm.On("SearchDuplicate", ctx, "loc-1", "", "555-123-4567").Return("", nil)
	crm.On("CreateContact", ctx, "loc-1", mock.MatchedBy(func(p ghl.ContactPayload) bool {
		return p.Phone == "555-123-4567" && p.Email == "" && p.FirstName == "Ann" &&
			hasField(p.CustomFields, "f-pa", "1 Main St") &&
			assert.ObjectsAreEqual([]string{"probate", "tx"}, p.Tags)
	})).Return(ghl.CreateContactResult{ID: "new-1"}, nil)

	res, err := r.Reconcile(ctx, usecase.ReconcileInput{
		LocationID: "loc-1",
		Incoming: []entity.Row{
			{"First": "Ann", "Phone Number": "(555) 123-4567", "Street": "1 Main St", "Tags": "probate, tx"},
		},
		Mapping:              testMapping,
		RemoteDuplicateCheck: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.NewLeads)
	assert.Equal(t, 0, res.ExistingLeads)
	assert.Equal(t, 0, res.Error)
	assert.Equal(t, 1, res.Total)
	crm.AssertExpectations(t)
}

func TestReconcile_DuplicateOnCreateBecomesUpdate(t *testing.T) {
	ctx := context.Background()
	crm := new(MockContactGateway)
	r := newReconciler(crm)

	crm.On("CreateContact", ctx, "loc-1", mock.Anything).Return(ghl.CreateContactResult{DuplicateOf: "id2"}, nil)
	crm.On("UpdateContact", ctx, "loc-1", "id2", mock.Anything).Return(ghl.UpdateContactResult{Status: 200}, nil)

	res, err := r.Reconcile(ctx, usecase.ReconcileInput{
		LocationID: "loc-1",
		Incoming:   []entity.Row{{"Email Address": "dup@example.com"}},
		Mapping:    testMapping,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, res.NewLeads)
	assert.Equal(t, 1, res.ExistingLeads)
	assert.Equal(t, 1, res.Total)
	crm.AssertCalled(t, "UpdateContact", ctx, "loc-1", "id2", mock.Anything)
	crm.AssertNotCalled(t, "SearchDuplicate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_FillsFirstEmptyAddressSlot(t *testing.T) {
	ctx := context.Background()
	crm := new(MockContactGateway)
	r := newReconciler(crm)

	reference := []entity.Row{
		{"Contact Id": "c-1", "Email": "Owner@Example.com", "Phone": "", "Property Address 2": "old 2"},
		{"Contact Id": "c-1", "Email": "owner@example.com", "Property Address 3": "old 3"},
		{"Contact Id": "c-2", "Email": "other@example.com", "Property Address 2": "x"},
		{"Contact Id": "c-3", "Phone": "555 000 1111"},
	}

	crm.On("UpdateContact", ctx, "loc-1", "c-1", mock.MatchedBy(func(u ghl.ContactUpdate) bool {
		return len(u.CustomFields) == 2 &&
			hasField(u.CustomFields, "f-pa4", "9 Elm St, Austin, 78701, TX") &&
			hasField(u.CustomFields, "f-mot", "high")
	})).Return(ghl.UpdateContactResult{Status: 200}, nil)

	res, err := r.Reconcile(ctx, usecase.ReconcileInput{
		LocationID: "loc-1",
		Reference:  reference,
		Incoming: []entity.Row{
			{"Email Address": " OWNER@example.com ", "Street": "9 Elm St", "City": "Austin", "Zip": "78701", "State": "TX", "Motivation": "high"},
		},
		Mapping:              testMapping,
		CustomFieldNames:     []string{"Motivation", "Not In Registry"},
		RemoteDuplicateCheck: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.ExistingLeads)
	crm.AssertExpectations(t)
	crm.AssertNotCalled(t, "SearchDuplicate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_AllSlotsFullStillUpdates(t *testing.T) {
	ctx := context.Background()
	crm := new(MockContactGateway)
	r := newReconciler(crm)

	reference := []entity.Row{{
		"Contact Id": "c-1", "Email": "full@example.com",
		"Property Address 2": "a", "Property Address 3": "b", "Property Address 4": "c", "Property Address 5": "d",
	}}

	crm.On("UpdateContact", ctx, "loc-1", "c-1", mock.MatchedBy(func(u ghl.ContactUpdate) bool {
		return len(u.CustomFields) == 0
	})).Return(ghl.UpdateContactResult{Status: 200}, nil)

	res, err := r.Reconcile(ctx, usecase.ReconcileInput{
		LocationID: "loc-1",
		Reference:  reference,
		Incoming:   []entity.Row{{"Email Address": "full@example.com", "Street": "new"}},
		Mapping:    testMapping,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.ExistingLeads)
	crm.AssertExpectations(t)
}

func TestReconcile_InRunIndexAvoidsSecondLookup(t *testing.T) {
	ctx := context.Background()
	crm := new(MockContactGateway)
	r := newReconciler(crm)

	crm.On("SearchDuplicate", ctx, "loc-1", "pat@example.com", "").Return("", nil).Once()
	crm.On("CreateContact", ctx, "loc-1", mock.Anything).Return(ghl.CreateContactResult{ID: "fresh"}, nil).Once()
	crm.On("UpdateContact", ctx, "loc-1", "fresh", mock.MatchedBy(func(u ghl.ContactUpdate) bool {
		return hasField(u.CustomFields, "f-pa2", "2 Oak Ave")
	})).Return(ghl.UpdateContactResult{Status: 200}, nil).Once()
	crm.On("UpdateContact", ctx, "loc-1", "fresh", mock.MatchedBy(func(u ghl.ContactUpdate) bool {
		return hasField(u.CustomFields, "f-pa3", "3 Oak Ave")
	})).Return(ghl.UpdateContactResult{Status: 200}, nil).Once()

	res, err := r.Reconcile(ctx, usecase.ReconcileInput{
		LocationID: "loc-1",
		Incoming: []entity.Row{
			{"Email Address": "pat@example.com", "Street": "1 Oak Ave"},
			{"Email Address": "PAT@example.com", "Street": "2 Oak Ave"},
			{"Email Address": "pat@example.com", "Street": "3 Oak Ave"},
		},
		Mapping:              testMapping,
		RemoteDuplicateCheck: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.NewLeads)
	assert.Equal(t, 2, res.ExistingLeads)
	crm.AssertNumberOfCalls(t, "SearchDuplicate", 1)
	crm.AssertNumberOfCalls(t, "CreateContact", 1)
	crm.AssertExpectations(t)
}

func TestReconcile_TotalsAlwaysAddUp(t *testing.T) {
	ctx := context.Background()
	crm := new(MockContactGateway)
	r := newReconciler(crm)
	metrics := newCountingRecorder()
	r.Metrics = metrics

	crm.On("CreateContact", ctx, "loc-1", mock.MatchedBy(func(p ghl.ContactPayload) bool {
		return p.Email == "ok@example.com"
	})).Return(ghl.CreateContactResult{ID: "n1"}, nil)
	crm.On("CreateContact", ctx, "loc-1", mock.MatchedBy(func(p ghl.ContactPayload) bool {
		return p.Email == "bad@example.com"
	})).Return(ghl.CreateContactResult{}, &entity.APIError{Service: "crm", Status: 422, Body: "email invalid"})

	res, err := r.Reconcile(ctx, usecase.ReconcileInput{
		LocationID: "loc-1",
		Incoming: []entity.Row{
			{"Email Address": "ok@example.com"},
			{"Email Address": "", "Phone Number": "12"},
			{"Email Address": "bad@example.com"},
		},
		Mapping: testMapping,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, res.Total, res.NewLeads+res.ExistingLeads+res.Error)
	assert.Equal(t, 2, res.Error)
	require.Len(t, res.SkippedRows, 2)
	assert.Equal(t, 1, res.SkippedRows[0].RowIndex)
	assert.Equal(t, "missing both email and phone", res.SkippedRows[0].Reason)
	assert.Equal(t, 2, res.SkippedRows[1].RowIndex)
	assert.Equal(t, "email invalid", res.SkippedRows[1].Reason)
	assert.Equal(t, 1, metrics.rows["new"])
	assert.Equal(t, 2, metrics.rows["error"])
}

func TestReconcile_EmptyRegistryRejected(t *testing.T) {
	ctx := context.Background()
	crm := new(MockContactGateway)
	crm.On("GetCustomFields", ctx, "loc-1").Return([]ghl.CustomField{}, nil)
	r := usecase.NewReconciler(crm, zap.NewNop())

	_, err := r.Reconcile(ctx, usecase.ReconcileInput{
		LocationID: "loc-1",
		Incoming:   []entity.Row{{"Email Address": "a@b.c"}},
		Mapping:    testMapping,
	})

	assert.True(t, entity.IsValidation(err))
	crm.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_MappingRequiresEmailAndPhone(t *testing.T) {
	crm := new(MockContactGateway)
	r := usecase.NewReconciler(crm, zap.NewNop())

	_, err := r.Reconcile(context.Background(), usecase.ReconcileInput{
		LocationID: "loc-1",
		Mapping:    entity.FieldMapping{entity.FieldFirstName: "First"},
	})

	var errs entity.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 2)
	crm.AssertNotCalled(t, "GetCustomFields", mock.Anything, mock.Anything)
}

func TestReconcile_EmailMatchWinsOverPhoneMatch(t *testing.T) {
	ctx := context.Background()
	crm := new(MockContactGateway)
	r := newReconciler(crm)

	reference := []entity.Row{
		{"Contact Id": "A", "Email": "erin@example.com"},
		{"Contact Id": "B", "Phone": "555-111-2222"},
	}
	crm.On("UpdateContact", ctx, "loc-1", "A", mock.Anything).Return(ghl.UpdateContactResult{Status: 200}, nil)

	res, err := r.Reconcile(ctx, usecase.ReconcileInput{
		LocationID: "loc-1",
		Reference:  reference,
		Incoming:   []entity.Row{{"Email Address": "Erin@Example.com", "Phone Number": "(555) 111-2222"}},
		Mapping:    testMapping,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.ExistingLeads)
	crm.AssertCalled(t, "UpdateContact", ctx, "loc-1", "A", mock.Anything)
	crm.AssertNotCalled(t, "UpdateContact", mock.Anything, mock.Anything, "B", mock.Anything)
}

func TestReconcile_RemoteDuplicateHitUpdates(t *testing.T) {
	ctx := context.Background()
	crm := new(MockContactGateway)
	r := newReconciler(crm)

	crm.On("SearchDuplicate", ctx, "loc-1", "sam@example.com", "555-444-3333").Return("remote-9", nil)
	crm.On("UpdateContact", ctx, "loc-1", "remote-9", mock.MatchedBy(func(u ghl.ContactUpdate) bool {
		return hasField(u.CustomFields, "f-pa2", "5 Pine Rd")
	})).Return(ghl.UpdateContactResult{Status: 200}, nil)

	res, err := r.Reconcile(ctx, usecase.ReconcileInput{
		LocationID:           "loc-1",
		Incoming:             []entity.Row{{"Email Address": "sam@example.com", "Phone Number": "555.444.3333", "Street": "5 Pine Rd"}},
		Mapping:              testMapping,
		RemoteDuplicateCheck: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, res.NewLeads)
	assert.Equal(t, 1, res.ExistingLeads)
	crm.AssertExpectations(t)
	crm.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_PanickingRowDoesNotStopRun(t *testing.T) {
	ctx := context.Background()
	crm := new(MockContactGateway)
	r := newReconciler(crm)

	crm.On("CreateContact", ctx, "loc-1", mock.MatchedBy(func(p ghl.ContactPayload) bool {
		return p.Email == "boom@example.com"
	})).Panic("nil map write")
	crm.On("CreateContact", ctx, "loc-1", mock.MatchedBy(func(p ghl.ContactPayload) bool {
		return p.Email == "next@example.com"
	})).Return(ghl.CreateContactResult{ID: "n2"}, nil)

	res, err := r.Reconcile(ctx, usecase.ReconcileInput{
		LocationID: "loc-1",
		Incoming: []entity.Row{
			{"Email Address": "boom@example.com"},
			{"Email Address": "next@example.com"},
		},
		Mapping: testMapping,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Error)
	assert.Equal(t, 1, res.NewLeads)
	require.Len(t, res.SkippedRows, 1)
	assert.Equal(t, 0, res.SkippedRows[0].RowIndex)
	assert.Contains(t, res.SkippedRows[0].Reason, "nil map write")
}

func TestReconcile_UpdateFailureCountedAsError(t *testing.T) {
	ctx := context.Background()
	crm := new(MockContactGateway)
	r := newReconciler(crm)
	metrics := newCountingRecorder()
	r.Metrics = metrics

	reference := []entity.Row{{"Contact Id": "c-9", "Email": "lock@example.com"}}
	crm.On("UpdateContact", ctx, "loc-1", "c-9", mock.Anything).
		Return(ghl.UpdateContactResult{}, &entity.APIError{Service: "crm", Status: 423, Body: "contact locked"})

	res, err := r.Reconcile(ctx, usecase.ReconcileInput{
		LocationID: "loc-1",
		Reference:  reference,
		Incoming:   []entity.Row{{"Email Address": "lock@example.com", "Street": "7 Bay St"}},
		Mapping:    testMapping,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Error)
	assert.Equal(t, 0, res.ExistingLeads)
	require.Len(t, res.SkippedRows, 1)
	assert.Equal(t, "contact locked", res.SkippedRows[0].Reason)
	assert.Equal(t, 1, metrics.integrations["crm"])
	assert.Equal(t, 1, metrics.rows["error"])
}

func TestReconcile_ReferenceMatchAndUnmatchedPhoneRow(t *testing.T) {
	ctx := context.Background()
	crm := new(MockContactGateway)
	r := newReconciler(crm)

	reference := []entity.Row{{"Contact Id": "id1", "Email": "a@x.com"}}
	crm.On("UpdateContact", ctx, "loc-1", "id1", mock.Anything).Return(ghl.UpdateContactResult{Status: 200}, nil)
	crm.On("CreateContact", ctx, "loc-1", mock.MatchedBy(func(p ghl.ContactPayload) bool {
		return p.Phone == "555-222-3333" && p.Email == ""
	})).Return(ghl.CreateContactResult{ID: "id2"}, nil)

	res, err := r.Reconcile(ctx, usecase.ReconcileInput{
		LocationID: "loc-1",
		Reference:  reference,
		Incoming: []entity.Row{
			{"Email Address": "A@X.com"},
			{"Phone Number": "555 222 3333"},
		},
		Mapping: testMapping,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.NewLeads)
	assert.Equal(t, 1, res.ExistingLeads)
	assert.Equal(t, 0, res.Error)
	assert.Equal(t, 2, res.Total)
	crm.AssertExpectations(t)
}
