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

type PropertyRepository struct {
	db    API
	table string
}

func NewPropertyRepository(db API, table string) *PropertyRepository {
	return &PropertyRepository{db: db, table: table}
}

func (r *PropertyRepository) FindByID(ctx context.Context, customerID, propertyID string) (*entity.Property, error) {
	out, err := r.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"customerid": &types.AttributeValueMemberS{Value: customerID},
			"id":         &types.AttributeValueMemberS{Value: propertyID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get property %s/%s: %w", customerID, propertyID, err)
	}
	if out.Item == nil {
		return nil, &entity.NotFoundError{Resource: "property", Key: customerID + "/" + propertyID}
	}

	var p entity.Property
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("decode property %s: %w", propertyID, err)
	}
	return &p, nil
}
