package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnection_Expired(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewConnection("loc1", "a", "r", 60, now)

	assert.Equal(t, int64(1060), c.ExpiresAt)
	assert.False(t, c.Expired(now))
	assert.False(t, c.Expired(time.Unix(1060, 0)))
	assert.True(t, c.Expired(time.Unix(1061, 0)))
}

func TestReconciliationResult_Record(t *testing.T) {
	r := NewReconciliationResult()
	r.Record(0, Row{"a": "1"}, RowResult{Outcome: OutcomeNew})
	r.Record(1, Row{"a": "2"}, RowResult{Outcome: OutcomeExisting})
	r.Record(2, Row{"a": "3"}, RowResult{Outcome: OutcomeError, Reason: "boom"})

	assert.Equal(t, 3, r.Total)
	assert.Equal(t, r.Total, r.NewLeads+r.ExistingLeads+r.Error)
	assert.Equal(t, []SkippedRow{{RowIndex: 2, Reason: "boom", RowData: Row{"a": "3"}}}, r.SkippedRows)
}

func TestLeadRecord_Field(t *testing.T) {
	l := LeadRecord{
		Row:     Row{"E-mail": "  A@X.com ", "Tel": ""},
		Mapping: FieldMapping{FieldEmail: "E-mail", FieldPhone: "Tel"},
	}
	assert.Equal(t, "A@X.com", l.Field(FieldEmail))
	assert.Equal(t, "", l.Field(FieldPhone))
	assert.Equal(t, "", l.Field(FieldCountry))
}

func TestProperty_ContactID(t *testing.T) {
	p := Property{CRMURL: "https://app.example.com/v2/location/l1/contacts/detail/abc123/"}
	assert.Equal(t, "abc123", p.ContactID())
	assert.Equal(t, "", (&Property{}).ContactID())
}
