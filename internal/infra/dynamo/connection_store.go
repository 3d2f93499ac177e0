package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/homedispo/crm-bridge/internal/entity"
)

// connectionItem is the stored shape. expires is unix seconds kept as a
// string, the format existing rows already use.
type connectionItem struct {
	LocationID   string `dynamodbav:"locationid"`
	Token        string `dynamodbav:"token"`
	Refresh      string `dynamodbav:"refresh"`
	Expires      string `dynamodbav:"expires"`
	LocationName string `dynamodbav:"locationname,omitempty"`
	UpdatedAt    string `dynamodbav:"updated_at,omitempty"`
}

type ConnectionStore struct {
	db    API
	table string
}

func NewConnectionStore(db API, table string) *ConnectionStore {
	return &ConnectionStore{db: db, table: table}
}

func (s *ConnectionStore) Get(ctx context.Context, locationID string) (*entity.Connection, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            map[string]types.AttributeValue{"locationid": &types.AttributeValueMemberS{Value: locationID}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w", locationID, err)
	}
	if out.Item == nil {
		return nil, &entity.NotFoundError{Resource: "connection", Key: locationID}
	}

	var item connectionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("decode connection %s: %w", locationID, err)
	}

	expires, err := strconv.ParseInt(item.Expires, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("connection %s has malformed expires %q: %w", locationID, item.Expires, err)
	}

	conn := &entity.Connection{
		LocationID:   item.LocationID,
		AccessToken:  item.Token,
		RefreshToken: item.Refresh,
		ExpiresAt:    expires,
		LocationName: item.LocationName,
	}
	if item.UpdatedAt != "" {
		conn.UpdatedAt, _ = time.Parse(time.RFC3339, item.UpdatedAt)
	}
	return conn, nil
}

// Upsert writes all token fields in one UpdateItem call, creating the item
// when it does not exist yet. An empty LocationName leaves the stored one.
func (s *ConnectionStore) Upsert(ctx context.Context, c *entity.Connection) error {
	expr := "SET #t = :t, #r = :r, #e = :e, #u = :u"
	names := map[string]string{
		"#t": "token",
		"#r": "refresh",
		"#e": "expires",
		"#u": "updated_at",
	}
	values := map[string]types.AttributeValue{
		":t": &types.AttributeValueMemberS{Value: c.AccessToken},
		":r": &types.AttributeValueMemberS{Value: c.RefreshToken},
		":e": &types.AttributeValueMemberS{Value: strconv.FormatInt(c.ExpiresAt, 10)},
		":u": &types.AttributeValueMemberS{Value: c.UpdatedAt.UTC().Format(time.RFC3339)},
	}
	if c.LocationName != "" {
		expr += ", #n = :n"
		names["#n"] = "locationname"
		values[":n"] = &types.AttributeValueMemberS{Value: c.LocationName}
	}

	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       map[string]types.AttributeValue{"locationid": &types.AttributeValueMemberS{Value: c.LocationID}},
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("upsert connection %s: %w", c.LocationID, err)
	}
	return nil
}

// ListExpired scans the table for locations whose token expired before the
// given unix second. expires is a string attribute, so the comparison is
// done here rather than in a filter expression.
func (s *ConnectionStore) ListExpired(ctx context.Context, before int64) ([]string, error) {
	var (
		ids   []string
		start map[string]types.AttributeValue
	)
	for {
		out, err := s.db.Scan(ctx, &dynamodb.ScanInput{
			TableName:                aws.String(s.table),
			ProjectionExpression:     aws.String("locationid, #e"),
			ExpressionAttributeNames: map[string]string{"#e": "expires"},
			ExclusiveStartKey:        start,
		})
		if err != nil {
			return nil, fmt.Errorf("scan connections: %w", err)
		}

		for _, raw := range out.Items {
			var item connectionItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				continue
			}
			expires, err := strconv.ParseInt(item.Expires, 10, 64)
			if err != nil || expires >= before {
				continue
			}
			ids = append(ids, item.LocationID)
		}

		if len(out.LastEvaluatedKey) == 0 {
			return ids, nil
		}
		start = out.LastEvaluatedKey
	}
}
