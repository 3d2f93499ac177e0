package usecase

import (
	"strings"

	"github.com/homedispo/crm-bridge/internal/entity"
)

func ValidateReconcileInput(input ReconcileInput) entity.ValidationErrors {
	var errors entity.ValidationErrors

	if strings.TrimSpace(input.LocationID) == "" {
		errors = append(errors, &entity.ValidationError{Field: "locationId", Message: "is required"})
	}
	if input.Mapping.Column(entity.FieldEmail) == "" {
		errors = append(errors, &entity.ValidationError{Field: "map_data.email", Message: "is required"})
	}
	if input.Mapping.Column(entity.FieldPhone) == "" {
		errors = append(errors, &entity.ValidationError{Field: "map_data.phone", Message: "is required"})
	}

	return errors
}

func ValidateUpdatePhonesInput(input UpdatePhonesInput) entity.ValidationErrors {
	var errors entity.ValidationErrors

	if strings.TrimSpace(input.ContactID) == "" {
		errors = append(errors, &entity.ValidationError{Field: "contact_id", Message: "is required"})
	}
	if strings.TrimSpace(input.LocationID) == "" {
		errors = append(errors, &entity.ValidationError{Field: "location_id", Message: "is required"})
	}

	return errors
}

func ValidateSendEnvelopeInput(input SendEnvelopeInput) entity.ValidationErrors {
	var errors entity.ValidationErrors

	if strings.TrimSpace(input.CustomerID) == "" {
		errors = append(errors, &entity.ValidationError{Field: "customer_id", Message: "is required"})
	}
	if strings.TrimSpace(input.PropertyID) == "" {
		errors = append(errors, &entity.ValidationError{Field: "property_id", Message: "is required"})
	}
	if strings.TrimSpace(input.LocationID) == "" {
		errors = append(errors, &entity.ValidationError{Field: "location_id", Message: "is required"})
	}

	return errors
}

func ValidateIngestInput(input IngestInput) entity.ValidationErrors {
	var errors entity.ValidationErrors

	if strings.TrimSpace(input.TenantID) == "" {
		errors = append(errors, &entity.ValidationError{Field: "tenant_id", Message: "is required"})
	}
	if input.Data == nil {
		errors = append(errors, &entity.ValidationError{Field: "data", Message: "is required"})
	}

	return errors
}

// ValidateFollowUpInput needs a location only when the task is really sent.
func ValidateFollowUpInput(input FollowUpInput) entity.ValidationErrors {
	var errors entity.ValidationErrors

	if strings.TrimSpace(input.ContactID) == "" {
		errors = append(errors, &entity.ValidationError{Field: "contact_id", Message: "is required"})
	}
	if !input.DryRun && strings.TrimSpace(input.LocationID) == "" {
		errors = append(errors, &entity.ValidationError{Field: "location_id", Message: "is required"})
	}

	return errors
}
