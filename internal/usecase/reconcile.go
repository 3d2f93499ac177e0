package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/homedispo/crm-bridge/internal/entity"
	"github.com/homedispo/crm-bridge/internal/infra/integration/ghl"
	"go.uber.org/zap"
)

type ReconcileInput struct {
	LocationID string
	// Reference is the CRM export used to build the contact index.
	Reference []entity.Row
	Incoming  []entity.Row
	Mapping   entity.FieldMapping
	// CustomFieldNames are columns of Incoming copied to same-named CRM
	// custom fields.
	CustomFieldNames     []string
	RemoteDuplicateCheck bool
}

// Reconciler matches incoming lead rows to CRM contacts and creates or
// updates them one row at a time, in input order.
type Reconciler struct {
	CRM     ContactGateway
	Metrics Recorder
	Logger  *zap.Logger
}

func NewReconciler(crm ContactGateway, logger *zap.Logger) *Reconciler {
	return &Reconciler{CRM: crm, Metrics: nopRecorder{}, Logger: logger.Named("reconcile")}
}

// Reconcile fails only on setup problems (invalid input, registry lookup).
// Row failures are counted and listed in the result.
func (r *Reconciler) Reconcile(ctx context.Context, in ReconcileInput) (*entity.ReconciliationResult, error) {
	if errs := ValidateReconcileInput(in); len(errs) > 0 {
		return nil, errs
	}

	fields, err := r.CRM.GetCustomFields(ctx, in.LocationID)
	if err != nil {
		return nil, fmt.Errorf("load custom field registry: %w", err)
	}
	if len(fields) == 0 {
		return nil, &entity.ValidationError{Field: "customFields", Message: "no custom fields available for this location"}
	}
	registry := make(map[string]string, len(fields))
	for _, f := range fields {
		registry[f.Name] = f.ID
	}

	run := &reconcileRun{
		Reconciler: r,
		in:         in,
		registry:   registry,
		index:      newContactIndex(in.Reference),
	}

	result := entity.NewReconciliationResult()
	for i, row := range in.Incoming {
		res := run.process(ctx, row)
		result.Record(i, row, res)
		r.Metrics.ReconcileRow(string(res.Outcome))
	}

	r.Logger.Info("reconciliation finished",
		zap.String("location_id", in.LocationID),
		zap.Int("total", result.Total),
		zap.Int("new", result.NewLeads),
		zap.Int("existing", result.ExistingLeads),
		zap.Int("error", result.Error))
	return result, nil
}

type reconcileRun struct {
	*Reconciler
	in       ReconcileInput
	registry map[string]string
	index    *contactIndex
}

func (run *reconcileRun) process(ctx context.Context, row entity.Row) (res entity.RowResult) {
	defer func() {
		if p := recover(); p != nil {
			run.Logger.Error("row panicked", zap.Any("panic", p))
			res = failed(fmt.Sprintf("unexpected error: %v", p))
		}
	}()

	lead := entity.LeadRecord{Row: row, Mapping: run.in.Mapping}
	email := NormalizeEmail(lead.Field(entity.FieldEmail))
	phone := NormalizePhone(lead.Field(entity.FieldPhone))
	if email == "" && phone == "" {
		return failed("missing both email and phone")
	}

	id := run.index.lookup(email, phone)
	if id == "" && run.in.RemoteDuplicateCheck {
		found, err := run.CRM.SearchDuplicate(ctx, run.in.LocationID, email, phone)
		if err != nil {
			return run.crmFailed(err)
		}
		if found != "" {
			run.index.add(email, phone, found)
			id = found
		}
	}

	if id == "" {
		created, err := run.CRM.CreateContact(ctx, run.in.LocationID, run.createPayload(lead, email, phone))
		if err != nil {
			return run.crmFailed(err)
		}
		if created.DuplicateOf == "" {
			run.index.add(email, phone, created.ID)
			return entity.RowResult{Outcome: entity.OutcomeNew, ContactID: created.ID}
		}
		id = created.DuplicateOf
		run.index.add(email, phone, id)
	}

	return run.update(ctx, lead, id)
}

func (run *reconcileRun) createPayload(lead entity.LeadRecord, email, phone string) ghl.ContactPayload {
	p := ghl.ContactPayload{
		FirstName:  lead.Field(entity.FieldFirstName),
		LastName:   lead.Field(entity.FieldLastName),
		Name:       lead.Field(entity.FieldFullName),
		Email:      email,
		Phone:      phone,
		Country:    lead.Field(entity.FieldCountry),
		LocationID: run.in.LocationID,
		Tags:       splitTags(lead.Field(entity.FieldTag)),
	}

	if addr := lead.Field(entity.FieldPropertyAddress); addr != "" {
		if fieldID, ok := run.registry[primaryAddressField]; ok {
			p.CustomFields = append(p.CustomFields, ghl.CustomFieldValue{ID: fieldID, Value: addr})
		}
	}
	p.CustomFields = append(p.CustomFields, run.selectedCustomFields(lead.Row)...)
	return p
}

// update writes the lead's address into the contact's first free
// "Property Address N" slot, plus the selected custom fields.
func (run *reconcileRun) update(ctx context.Context, lead entity.LeadRecord, id string) entity.RowResult {
	fields := []ghl.CustomFieldValue{}

	slot := run.index.firstEmptySlot(id)
	if slot != 0 {
		if addr := composeAddress(lead); addr != "" {
			if fieldID, ok := run.registry[addressSlotField(slot)]; ok {
				fields = append(fields, ghl.CustomFieldValue{ID: fieldID, Value: addr})
			} else {
				slot = 0
			}
		} else {
			slot = 0
		}
	}
	fields = append(fields, run.selectedCustomFields(lead.Row)...)

	if _, err := run.CRM.UpdateContact(ctx, run.in.LocationID, id, ghl.ContactUpdate{CustomFields: fields}); err != nil {
		return run.crmFailed(err)
	}
	if slot != 0 {
		run.index.markFilled(id, slot)
	}
	return entity.RowResult{Outcome: entity.OutcomeExisting, ContactID: id}
}

// selectedCustomFields keeps the caller's custom fields that exist in the
// registry and have a value in this row.
func (run *reconcileRun) selectedCustomFields(row entity.Row) []ghl.CustomFieldValue {
	var out []ghl.CustomFieldValue
	for _, name := range run.in.CustomFieldNames {
		fieldID, ok := run.registry[name]
		if !ok {
			continue
		}
		if v := row.Get(name); v != "" {
			out = append(out, ghl.CustomFieldValue{ID: fieldID, Value: v})
		}
	}
	return out
}

func composeAddress(lead entity.LeadRecord) string {
	var parts []string
	for _, f := range []string{entity.FieldPropertyAddress, entity.FieldPropertyCity, entity.FieldPropertyZip, entity.FieldPropertyState} {
		if v := lead.Field(f); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// crmFailed turns a CRM call error into a row error, counting upstream
// rejections as integration errors.
func (run *reconcileRun) crmFailed(err error) entity.RowResult {
	var apiErr *entity.APIError
	if errors.As(err, &apiErr) {
		run.Metrics.IntegrationError(apiErr.Service)
	}
	return failed(reason(err))
}

func failed(why string) entity.RowResult {
	return entity.RowResult{Outcome: entity.OutcomeError, Reason: why}
}

// reason prefers the provider's response body over the Go error text.
func reason(err error) string {
	var apiErr *entity.APIError
	if errors.As(err, &apiErr) && apiErr.Body != "" {
		return apiErr.Body
	}
	return err.Error()
}
