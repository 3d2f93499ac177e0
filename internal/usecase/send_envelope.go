package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/homedispo/crm-bridge/internal/entity"
	"github.com/homedispo/crm-bridge/internal/infra/integration/docusign"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	documentTypeField = "Document Type"
	closingDelay      = 30 * 24 * time.Hour
)

type SendEnvelopeInput struct {
	CustomerID string `json:"customer_id"`
	PropertyID string `json:"property_id"`
	LocationID string `json:"location_id"`
}

// EnvelopeSender builds a pre-filled offer envelope from a property record
// and its linked CRM contact.
type EnvelopeSender struct {
	Properties PropertyRepository
	CRM        ContactGateway
	Signatures SignatureGateway
	Layout     *docusign.Layout
	Logger     *zap.Logger
	Now        func() time.Time
}

func NewEnvelopeSender(props PropertyRepository, crm ContactGateway, sig SignatureGateway, layout *docusign.Layout, logger *zap.Logger) *EnvelopeSender {
	return &EnvelopeSender{
		Properties: props,
		CRM:        crm,
		Signatures: sig,
		Layout:     layout,
		Logger:     logger.Named("envelope"),
		Now:        time.Now,
	}
}

func (s *EnvelopeSender) Execute(ctx context.Context, input SendEnvelopeInput) (*docusign.EnvelopeResult, error) {
	if errs := ValidateSendEnvelopeInput(input); len(errs) > 0 {
		return nil, errs
	}

	prop, err := s.Properties.FindByID(ctx, input.CustomerID, input.PropertyID)
	if err != nil {
		return nil, err
	}
	contactID := prop.ContactID()
	if contactID == "" {
		return nil, &entity.ValidationError{Field: "reicb_url", Message: "property has no linked CRM contact"}
	}

	contact, err := s.CRM.GetContact(ctx, input.LocationID, contactID)
	if err != nil {
		return nil, err
	}
	registry, err := s.CRM.GetCustomFields(ctx, input.LocationID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(registry))
	for _, f := range registry {
		names[f.ID] = f.Name
	}
	details := make(map[string]string, len(contact.CustomFields))
	for _, cf := range contact.CustomFields {
		if name, ok := names[cf.ID]; ok {
			details[name] = cf.String()
		}
	}

	values := s.buildValues(details, contact.FirstName, contact.LastName, contact.CompanyName, prop)
	req := docusign.EnvelopeRequest{
		TemplateName: s.Layout.TemplateFor(details[documentTypeField]),
		ContactID:    contactID,
		EmailSubject: values["propertyAddress"] + " - OFFER",
		Values:       values,
	}

	res, err := s.Signatures.SendEnvelope(ctx, req)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("envelope created",
		zap.String("envelope_id", res.EnvelopeID),
		zap.String("template", req.TemplateName),
		zap.String("contact_id", contactID))
	return res, nil
}

// buildValues flattens CRM details and the property record into the value
// keys used by the layout's tab maps.
func (s *EnvelopeSender) buildValues(details map[string]string, first, last, company string, prop *entity.Property) map[string]string {
	values := make(map[string]string)
	for label, key := range s.Layout.FieldLabels {
		if v, ok := details[label]; ok {
			values[key] = strings.TrimSpace(v)
		}
	}

	values["FirstName"] = first
	values["LastName"] = last
	values["CompanyName"] = company
	values["FullName"] = joinName(first, last)
	values["Seller1"] = joinName(values["Seller1First"], values["Seller1Last"])
	values["Seller2"] = joinName(values["Seller2First"], values["Seller2Last"])

	values["CashToSeller"] = amountOr(values["CashToSeller"], prop.CashToSeller)
	values["Debt"] = amountOr(values["Debt"], prop.Debt)
	values["agentComission"] = amountOr(values["agentComission"], prop.AgentCommission)
	values["purchasePrice"] = amountOr("", prop.ContractPrice)
	if values["sellerCarry"] == "" {
		values["sellerCarry"] = prop.SellerCarryTerms
	}

	for _, key := range s.Layout.UnsignedAmounts {
		if d, ok := parseAmount(values[key]); ok {
			values[key] = formatAmount(d, false)
		}
	}
	for key, suffix := range s.Layout.ValueSuffixes {
		if values[key] != "" {
			values[key] += suffix
		}
	}

	day, year := closingDate(s.Now())
	values["Day"] = day
	values["Year"] = year

	if tc, ok := s.Layout.TitleCompanies[values["state"]]; ok {
		values["CompanyTitle"] = tc.Name
		values["CompanyAddress"] = tc.Address
		values["CompanyTelephone"] = tc.Phone
		values["CompanyEmail"] = tc.Email
	}
	return values
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// closingDate is thirty days out, moved off the weekend. Day renders as
// "January 02," and Year as the two-digit year.
func closingDate(now time.Time) (string, string) {
	d := now.Add(closingDelay)
	switch d.Weekday() {
	case time.Sunday:
		d = d.AddDate(0, 0, 1)
	case time.Saturday:
		d = d.AddDate(0, 0, -1)
	}
	return d.Format("January 02,"), d.Format("06")
}

// amountOr formats raw as currency, falling back to the property amount
// when raw is not a number. It returns "" when neither is usable.
func amountOr(raw string, fallback *float64) string {
	if d, ok := parseAmount(raw); ok {
		return formatAmount(d, true)
	}
	if fallback != nil {
		return formatAmount(decimal.NewFromFloat(*fallback), true)
	}
	return ""
}

func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

var amountPrinter = message.NewPrinter(language.AmericanEnglish)

// formatAmount renders whole dollars with thousands separators.
func formatAmount(d decimal.Decimal, signed bool) string {
	n := amountPrinter.Sprintf("%d", d.RoundBank(0).IntPart())
	if signed {
		return fmt.Sprintf("$%s", n)
	}
	return n
}
