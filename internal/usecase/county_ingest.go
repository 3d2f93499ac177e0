package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/homedispo/crm-bridge/internal/entity"
	"go.uber.org/zap"
)

const defaultRecordLimit = 100

type IngestInput struct {
	TenantID string         `json:"tenant_id"`
	Data     map[string]any `json:"data"`
}

type IngestOutput struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	LeadID    string `json:"lead_id"`
}

// CountyIngestor stores county-stream notices and forwards them downstream.
type CountyIngestor struct {
	Records   CountyRecordStore
	Forwarder CountyForwarder
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewCountyIngestor(records CountyRecordStore, fwd CountyForwarder, logger *zap.Logger) *CountyIngestor {
	return &CountyIngestor{Records: records, Forwarder: fwd, Logger: logger.Named("county"), Now: time.Now}
}

// Execute fails without forwarding when the record cannot be stored. A
// forward failure is reported after the record is already saved.
func (i *CountyIngestor) Execute(ctx context.Context, input IngestInput) (*IngestOutput, error) {
	if errs := ValidateIngestInput(input); len(errs) > 0 {
		return nil, errs
	}

	ts := i.Now().UTC().Format(time.RFC3339Nano)

	data := make(map[string]any, len(input.Data)+1)
	for k, v := range input.Data {
		data[k] = v
	}
	leadID, _ := data["lead_id"].(string)
	if leadID == "" {
		leadID = uuid.NewString()
		data["lead_id"] = leadID
	}

	rec, err := decodeCountyRecord(data)
	if err != nil {
		return nil, err
	}
	rec.TenantID = input.TenantID
	rec.Timestamp = ts
	rec.FlattenAddress()

	if err := i.Records.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("store county record: %w", err)
	}

	payload := make(map[string]any, len(data)+2)
	payload["tenant_id"] = input.TenantID
	payload["timestamp"] = ts
	for k, v := range data {
		if k == "tenant_id" || k == "timestamp" {
			continue
		}
		payload[k] = v
	}

	if err := i.Forwarder.Forward(ctx, payload); err != nil {
		i.Logger.Error("county record forward failed",
			zap.String("tenant_id", input.TenantID),
			zap.String("lead_id", leadID),
			zap.Error(err))
		var apiErr *entity.APIError
		if !errors.As(err, &apiErr) {
			err = &entity.APIError{Service: "webhook", Status: http.StatusBadGateway, Body: err.Error()}
		}
		return nil, err
	}

	i.Logger.Info("county record ingested",
		zap.String("tenant_id", input.TenantID),
		zap.String("lead_id", leadID))
	return &IngestOutput{Status: "success", Message: "Data saved and forwarded.", Timestamp: ts, LeadID: leadID}, nil
}

func (i *CountyIngestor) List(ctx context.Context, tenantID string, limit int32) ([]entity.CountyRecord, error) {
	if tenantID == "" {
		return nil, &entity.ValidationError{Field: "tenant_id", Message: "is required"}
	}
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	return i.Records.ListByTenant(ctx, tenantID, limit)
}

func decodeCountyRecord(data map[string]any) (*entity.CountyRecord, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, &entity.ValidationError{Field: "data", Message: err.Error()}
	}
	var rec entity.CountyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &entity.ValidationError{Field: "data", Message: err.Error()}
	}
	return &rec, nil
}
