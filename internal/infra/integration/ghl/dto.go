package ghl

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CustomField is one entry of a location's custom-field registry.
type CustomField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CustomFieldValue sets or reads a custom field on a contact.
type CustomFieldValue struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// String renders the value the way it shows in the CRM UI.
func (v CustomFieldValue) String() string {
	switch val := v.Value.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, CustomFieldValue{Value: p}.String())
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

type ContactPayload struct {
	FirstName    string             `json:"firstName,omitempty"`
	LastName     string             `json:"lastName,omitempty"`
	Name         string             `json:"name,omitempty"`
	Email        string             `json:"email,omitempty"`
	Phone        string             `json:"phone,omitempty"`
	Country      string             `json:"country,omitempty"`
	LocationID   string             `json:"locationId,omitempty"`
	CustomFields []CustomFieldValue `json:"customFields,omitempty"`
	Tags         []string           `json:"tags,omitempty"`
}

// ContactUpdate is the body of PUT /contacts/{id}. CustomFields is always
// sent so an update with no slot left is still a valid request.
type ContactUpdate struct {
	CustomFields []CustomFieldValue `json:"customFields"`
}

type AdditionalPhone struct {
	Phone      string `json:"phone"`
	PhoneLabel string `json:"phoneLabel"`
}

type PhoneUpdate struct {
	Phone            string            `json:"phone"`
	PhoneLabel       string            `json:"phoneLabel"`
	AdditionalPhones []AdditionalPhone `json:"additionalPhones"`
}

// Task is the body of POST /contacts/{id}/tasks.
type Task struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	Completed  bool   `json:"completed"`
	DueDate    string `json:"dueDate,omitempty"`
	AssignedTo string `json:"assignedTo,omitempty"`
}

type Contact struct {
	ID           string             `json:"id"`
	FirstName    string             `json:"firstName"`
	LastName     string             `json:"lastName"`
	CompanyName  string             `json:"companyName"`
	Email        string             `json:"email"`
	Phone        string             `json:"phone"`
	CustomFields []CustomFieldValue `json:"customFields"`
}

type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateContactResult is the outcome of POST /contacts. DuplicateOf is set
// instead of ID when the location's duplicate policy rejected the create.
type CreateContactResult struct {
	ID          string
	DuplicateOf string
}

type UpdateContactResult struct {
	Status int
	Body   json.RawMessage
}

type contactEnvelope struct {
	Contact *Contact `json:"contact"`
}

type customFieldsEnvelope struct {
	CustomFields []CustomField `json:"customFields"`
}

type locationEnvelope struct {
	Location Location `json:"location"`
}

// errorBody covers the CRM's error shapes, including the duplicate
// rejection that names the existing contact in meta.contactId.
type errorBody struct {
	StatusCode int             `json:"statusCode"`
	Message    json.RawMessage `json:"message"`
	Error      json.RawMessage `json:"error"`
	Meta       struct {
		ContactID     string `json:"contactId"`
		MatchingField string `json:"matchingField"`
	} `json:"meta"`
}

func (e errorBody) hasError() bool {
	return len(e.Error) > 0 && string(e.Error) != "null" && string(e.Error) != "false"
}
