package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/homedispo/crm-bridge/internal/entity"
	"github.com/homedispo/crm-bridge/internal/infra/integration/ghl"
	"go.uber.org/zap"
)

// UpdatePhonesInput carries raw phone entries so malformed ones can be
// dropped instead of failing the whole request.
type UpdatePhonesInput struct {
	ContactID  string           `json:"contact_id"`
	LocationID string           `json:"location_id"`
	Phones     []map[string]any `json:"phones"`
}

type UpdatePhonesOutput struct {
	Status      int             `json:"status"`
	PayloadSent ghl.PhoneUpdate `json:"payload_sent"`
	CRMResponse json.RawMessage `json:"crm_response"`
}

type PhoneUpdater struct {
	CRM    ContactGateway
	Logger *zap.Logger
}

func NewPhoneUpdater(crm ContactGateway, logger *zap.Logger) *PhoneUpdater {
	return &PhoneUpdater{CRM: crm, Logger: logger.Named("phones")}
}

func (u *PhoneUpdater) Execute(ctx context.Context, input UpdatePhonesInput) (*UpdatePhonesOutput, error) {
	if errs := ValidateUpdatePhonesInput(input); len(errs) > 0 {
		return nil, errs
	}

	payload, ok := u.buildPayload(input.Phones)
	if !ok {
		return nil, &entity.ValidationError{Field: "phones", Message: "no valid phone numbers to process"}
	}

	res, err := u.CRM.UpdateContact(ctx, input.LocationID, input.ContactID, payload)
	if err != nil {
		return nil, err
	}

	u.Logger.Info("contact phones updated",
		zap.String("contact_id", input.ContactID),
		zap.Int("phones", 1+len(payload.AdditionalPhones)))

	body := res.Body
	if len(body) == 0 {
		body = json.RawMessage("null")
	}
	return &UpdatePhonesOutput{Status: res.Status, PayloadSent: payload, CRMResponse: body}, nil
}

// buildPayload makes the first usable entry the primary phone.
func (u *PhoneUpdater) buildPayload(raw []map[string]any) (ghl.PhoneUpdate, bool) {
	payload := ghl.PhoneUpdate{AdditionalPhones: []ghl.AdditionalPhone{}}
	found := false

	for _, entry := range raw {
		phone := stringValue(entry["phone"])
		kind := stringValue(entry["type"])
		if phone == "" || kind == "" {
			u.Logger.Debug("skipping phone entry", zap.Any("entry", entry))
			continue
		}
		if !found {
			payload.Phone = phone
			payload.PhoneLabel = phoneLabel(kind)
			found = true
			continue
		}
		payload.AdditionalPhones = append(payload.AdditionalPhones, ghl.AdditionalPhone{
			Phone:      phone,
			PhoneLabel: phoneLabel(kind),
		})
	}
	return payload, found
}

func phoneLabel(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "mobile", "mobile or cell", "wireless":
		return "Mobile"
	case "home":
		return "Home"
	case "work":
		return "Work"
	case "landline", "voip":
		return "Landline"
	default:
		return "Other"
	}
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
