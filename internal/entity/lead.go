package entity

import "strings"

// Row is one CSV line keyed by header name.
type Row map[string]string

// Get returns the trimmed cell for column, or "" when the column is absent.
func (r Row) Get(column string) string {
	if column == "" {
		return ""
	}
	return trimCell(r[column])
}

func trimCell(v string) string {
	return strings.TrimSpace(v)
}

// Logical lead fields a FieldMapping can resolve.
const (
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldFullName        = "fullName"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldPropertyAddress = "PropertyAddress"
	FieldPropertyCity    = "PropertyCity"
	FieldPropertyState   = "PropertyState"
	FieldPropertyZip     = "PropertyZip"
	FieldCountry         = "Country"
	FieldTag             = "Tag"
)

// Columns of the reference (CRM export) extract.
const (
	RefColumnContactID = "Contact Id"
	RefColumnEmail     = "Email"
	RefColumnPhone     = "Phone"
)

// FieldMapping maps a logical lead field to the incoming file's column name.
type FieldMapping map[string]string

// Column returns the source column for a logical field.
func (m FieldMapping) Column(field string) string {
	return m[field]
}

// LeadRecord is one incoming row resolved through a FieldMapping.
type LeadRecord struct {
	Row     Row
	Mapping FieldMapping
}

func (l LeadRecord) Field(field string) string {
	return l.Row.Get(l.Mapping.Column(field))
}

// Outcome buckets a processed row.
type Outcome string

const (
	OutcomeNew      Outcome = "new"
	OutcomeExisting Outcome = "existing"
	OutcomeError    Outcome = "error"
)

// RowResult is the per-row result accumulated into a ReconciliationResult.
type RowResult struct {
	Outcome   Outcome
	ContactID string
	Reason    string
}

// SkippedRow records a row that was not successfully processed.
type SkippedRow struct {
	RowIndex int    `json:"row_index"`
	Reason   string `json:"reason"`
	RowData  Row    `json:"row_data"`
}

// ReconciliationResult aggregates one reconciliation run.
// Total always equals NewLeads + ExistingLeads + Error.
type ReconciliationResult struct {
	NewLeads      int          `json:"new_leads"`
	ExistingLeads int          `json:"existing_leads"`
	Error         int          `json:"error"`
	Total         int          `json:"total"`
	SkippedRows   []SkippedRow `json:"skipped_rows"`
}

func NewReconciliationResult() *ReconciliationResult {
	return &ReconciliationResult{SkippedRows: []SkippedRow{}}
}

// Record puts one row's result into exactly one bucket.
func (r *ReconciliationResult) Record(index int, row Row, res RowResult) {
	r.Total++
	switch res.Outcome {
	case OutcomeNew:
		r.NewLeads++
	case OutcomeExisting:
		r.ExistingLeads++
	default:
		r.Error++
		r.SkippedRows = append(r.SkippedRows, SkippedRow{RowIndex: index, Reason: res.Reason, RowData: row})
	}
}
