package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/homedispo/crm-bridge/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func TestConnectionStore_Get(t *testing.T) {
	db := new(mockAPI)
	db.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return *in.TableName == "homedispo_connections" && in.Key["locationid"].(*types.AttributeValueMemberS).Value == "loc1"
	})).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"locationid":   s("loc1"),
		"token":        s("enc-at"),
		"refresh":      s("enc-rt"),
		"expires":      s("1700000000"),
		"locationname": s("Acme"),
	}}, nil)

	store := NewConnectionStore(db, TableName("homedispo", "connections"))
	c, err := store.Get(context.Background(), "loc1")
	require.NoError(t, err)
	assert.Equal(t, "enc-at", c.AccessToken)
	assert.Equal(t, "enc-rt", c.RefreshToken)
	assert.Equal(t, int64(1700000000), c.ExpiresAt)
	assert.Equal(t, "Acme", c.LocationName)
}

func TestConnectionStore_GetMissing(t *testing.T) {
	db := new(mockAPI)
	db.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := NewConnectionStore(db, "t").Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, entity.ErrConnectionNotFound))
}

func TestConnectionStore_GetMalformedExpiry(t *testing.T) {
	db := new(mockAPI)
	db.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"locationid": s("loc1"), "token": s("a"), "refresh": s("r"), "expires": s("soon"),
	}}, nil)

	_, err := NewConnectionStore(db, "t").Get(context.Background(), "loc1")
	assert.Error(t, err)
	assert.False(t, entity.IsNotFound(err))
}

func TestConnectionStore_UpsertSingleUpdate(t *testing.T) {
	db := new(mockAPI)
	var got *dynamodb.UpdateItemInput
	db.On("UpdateItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(*dynamodb.UpdateItemInput) }).
		Return(&dynamodb.UpdateItemOutput{}, nil)

	now := time.Unix(1700000000, 0)
	c := entity.NewConnection("loc1", "at", "rt", 3600, now)
	require.NoError(t, NewConnectionStore(db, "t").Upsert(context.Background(), c))

	db.AssertNumberOfCalls(t, "UpdateItem", 1)
	db.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)
	require.NotNil(t, got)
	assert.Equal(t, "SET #t = :t, #r = :r, #e = :e, #u = :u", *got.UpdateExpression)
	assert.Equal(t, "1700003600", got.ExpressionAttributeValues[":e"].(*types.AttributeValueMemberS).Value)
	assert.NotContains(t, got.ExpressionAttributeNames, "#n")
}

func TestConnectionStore_UpsertWithName(t *testing.T) {
	db := new(mockAPI)
	var got *dynamodb.UpdateItemInput
	db.On("UpdateItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(*dynamodb.UpdateItemInput) }).
		Return(&dynamodb.UpdateItemOutput{}, nil)

	c := entity.NewConnection("loc1", "at", "rt", 60, time.Now())
	c.LocationName = "Acme"
	require.NoError(t, NewConnectionStore(db, "t").Upsert(context.Background(), c))

	assert.Contains(t, *got.UpdateExpression, "#n = :n")
	assert.Equal(t, "locationname", got.ExpressionAttributeNames["#n"])
}

func TestConnectionStore_UpsertError(t *testing.T) {
	db := new(mockAPI)
	db.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	err := NewConnectionStore(db, "t").Upsert(context.Background(), entity.NewConnection("loc1", "a", "r", 1, time.Now()))
	assert.ErrorContains(t, err, "throttled")
}

func TestConnectionStore_ListExpiredPaginates(t *testing.T) {
	db := new(mockAPI)
	page2Key := map[string]types.AttributeValue{"locationid": s("loc2")}

	db.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{
			{"locationid": s("loc1"), "expires": s("100")},
			{"locationid": s("loc2"), "expires": s("500")},
		},
		LastEvaluatedKey: page2Key,
	}, nil).Once()
	db.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{
			{"locationid": s("loc3"), "expires": s("199")},
			{"locationid": s("loc4"), "expires": s("garbage")},
			{"locationid": s("loc5"), "expires": s("200")},
		},
	}, nil).Once()

	store := NewConnectionStore(db, "homedispo_connections")
	ids, err := store.ListExpired(context.Background(), 200)

	require.NoError(t, err)
	assert.Equal(t, []string{"loc1", "loc3"}, ids)
	db.AssertExpectations(t)
}

func TestConnectionStore_ListExpiredError(t *testing.T) {
	db := new(mockAPI)
	db.On("Scan", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	_, err := NewConnectionStore(db, "homedispo_connections").ListExpired(context.Background(), 1)
	assert.ErrorContains(t, err, "throttled")
}
