package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/homedispo/crm-bridge/internal/entity"
)

// CountyRecordRepository keeps county-stream notices keyed by
// (tenant_id, timestamp).
type CountyRecordRepository struct {
	db    API
	table string
}

func NewCountyRecordRepository(db API, table string) *CountyRecordRepository {
	return &CountyRecordRepository{db: db, table: table}
}

func (r *CountyRecordRepository) Save(ctx context.Context, rec *entity.CountyRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("encode county record: %w", err)
	}

	_, err = r.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put county record %s/%s: %w", rec.TenantID, rec.Timestamp, err)
	}
	return nil
}

// ListByTenant returns the tenant's records, oldest first, at most limit.
func (r *CountyRecordRepository) ListByTenant(ctx context.Context, tenantID string, limit int32) ([]entity.CountyRecord, error) {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    aws.String("#tid = :tid"),
		ExpressionAttributeNames:  map[string]string{"#tid": "tenant_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":tid": &types.AttributeValueMemberS{Value: tenantID}},
		ScanIndexForward:          aws.Bool(true),
	}
	if limit > 0 {
		in.Limit = aws.Int32(limit)
	}

	out, err := r.db.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("query county records for %s: %w", tenantID, err)
	}

	records := []entity.CountyRecord{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, fmt.Errorf("decode county records: %w", err)
	}
	return records, nil
}
