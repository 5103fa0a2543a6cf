package store

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/checklists-vnext/checklist-service/internal/dynamo"
)

// mockDynamoDBClient is a mock implementation of DynamoDBClient.
type mockDynamoDBClient struct {
	GetItemFunc    func(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItemFunc    func(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItemFunc func(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	QueryFunc      func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItemFunc func(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

func (m *mockDynamoDBClient) GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.GetItemFunc(ctx, input, opts...)
}

func (m *mockDynamoDBClient) PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return m.PutItemFunc(ctx, input, opts...)
}

func (m *mockDynamoDBClient) DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return m.DeleteItemFunc(ctx, input, opts...)
}

func (m *mockDynamoDBClient) Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return m.QueryFunc(ctx, input, opts...)
}

func (m *mockDynamoDBClient) UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return m.UpdateItemFunc(ctx, input, opts...)
}

func s(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func TestGet_AbsentItemReturnsNil(t *testing.T) {
	mock := &mockDynamoDBClient{
		GetItemFunc: func(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: nil}, nil
		},
	}
	client := NewClient(mock, "test-table")

	item, err := client.Get(context.Background(), "ORG#o1", "CL#c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil {
		t.Errorf("expected nil item for absent key, got %v", item)
	}
}

func TestGet_BackendErrorWrapsErrStorage(t *testing.T) {
	mock := &mockDynamoDBClient{
		GetItemFunc: func(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	client := NewClient(mock, "test-table")

	_, err := client.Get(context.Background(), "ORG#o1", "CL#c1")
	if !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
}

func TestPut_SendsItemToTable(t *testing.T) {
	var captured *dynamodb.PutItemInput
	mock := &mockDynamoDBClient{
		PutItemFunc: func(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			captured = input
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	client := NewClient(mock, "test-table")

	err := client.Put(context.Background(), Item{
		dynamo.AttrPK: s("ORG#o1"),
		dynamo.AttrSK: s("CL#c1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(captured.TableName) != "test-table" {
		t.Errorf("expected table test-table, got %s", aws.ToString(captured.TableName))
	}
	if got := captured.Item[dynamo.AttrPK].(*types.AttributeValueMemberS).Value; got != "ORG#o1" {
		t.Errorf("expected PK ORG#o1, got %s", got)
	}
}

func TestQuery_BuildsPrefixCondition(t *testing.T) {
	var captured *dynamodb.QueryInput
	mock := &mockDynamoDBClient{
		QueryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			captured = input
			return &dynamodb.QueryOutput{}, nil
		},
	}
	client := NewClient(mock, "test-table")

	_, err := client.Query(context.Background(), "ORG#o1", "CL#", Options{Limit: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantCond := "PK = :pk AND begins_with(SK, :sk)"
	if aws.ToString(captured.KeyConditionExpression) != wantCond {
		t.Errorf("expected condition %q, got %q", wantCond, aws.ToString(captured.KeyConditionExpression))
	}
	if got := captured.ExpressionAttributeValues[":sk"].(*types.AttributeValueMemberS).Value; got != "CL#" {
		t.Errorf("expected :sk CL#, got %s", got)
	}
	if aws.ToInt32(captured.Limit) != 25 {
		t.Errorf("expected limit 25, got %d", aws.ToInt32(captured.Limit))
	}
	if captured.IndexName != nil {
		t.Errorf("expected no index name, got %s", aws.ToString(captured.IndexName))
	}
}

func TestQuery_NoPrefixQueriesWholePartition(t *testing.T) {
	var captured *dynamodb.QueryInput
	mock := &mockDynamoDBClient{
		QueryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			captured = input
			return &dynamodb.QueryOutput{}, nil
		},
	}
	client := NewClient(mock, "test-table")

	if _, err := client.Query(context.Background(), "CL#c1", "", Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(captured.KeyConditionExpression) != "PK = :pk" {
		t.Errorf("unexpected condition %q", aws.ToString(captured.KeyConditionExpression))
	}
}

func TestQuery_IndexSwapsKeyAttributes(t *testing.T) {
	var captured *dynamodb.QueryInput
	mock := &mockDynamoDBClient{
		QueryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			captured = input
			return &dynamodb.QueryOutput{}, nil
		},
	}
	client := NewClient(mock, "test-table")

	_, err := client.Query(context.Background(), "ASSIGN#u1", "CL#", Options{Index: dynamo.IndexGSI1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantCond := "GSI1PK = :pk AND begins_with(GSI1SK, :sk)"
	if aws.ToString(captured.KeyConditionExpression) != wantCond {
		t.Errorf("expected condition %q, got %q", wantCond, aws.ToString(captured.KeyConditionExpression))
	}
	if aws.ToString(captured.IndexName) != "GSI1" {
		t.Errorf("expected index GSI1, got %s", aws.ToString(captured.IndexName))
	}
}

func TestQuery_CursorRoundTrip(t *testing.T) {
	lastKey := Item{
		dynamo.AttrPK: s("ORG#o1"),
		dynamo.AttrSK: s("CL#c9"),
	}
	var captured *dynamodb.QueryInput
	calls := 0
	mock := &mockDynamoDBClient{
		QueryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			calls++
			captured = input
			if calls == 1 {
				return &dynamodb.QueryOutput{LastEvaluatedKey: lastKey}, nil
			}
			return &dynamodb.QueryOutput{}, nil
		},
	}
	client := NewClient(mock, "test-table")

	page, err := client.Query(context.Background(), "ORG#o1", "CL#", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.NextCursor == "" {
		t.Fatal("expected a cursor when more items remain")
	}

	_, err = client.Query(context.Background(), "ORG#o1", "CL#", Options{Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := captured.ExclusiveStartKey
	if got := start[dynamo.AttrSK].(*types.AttributeValueMemberS).Value; got != "CL#c9" {
		t.Errorf("expected resumed SK CL#c9, got %s", got)
	}
}

func TestQuery_ExhaustedPageHasNoCursor(t *testing.T) {
	mock := &mockDynamoDBClient{
		QueryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{}, nil
		},
	}
	client := NewClient(mock, "test-table")

	page, err := client.Query(context.Background(), "ORG#o1", "CL#", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.NextCursor != "" {
		t.Errorf("expected empty cursor, got %q", page.NextCursor)
	}
}

func TestQuery_BadCursor(t *testing.T) {
	mock := &mockDynamoDBClient{
		QueryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			t.Fatal("query should not reach the backend with a bad cursor")
			return nil, nil
		},
	}
	client := NewClient(mock, "test-table")

	for _, cursor := range []string{"not base64!!", "bm90LWpzb24=", "e30="} {
		_, err := client.Query(context.Background(), "ORG#o1", "CL#", Options{Cursor: cursor})
		if !errors.Is(err, ErrBadCursor) {
			t.Errorf("cursor %q: expected ErrBadCursor, got %v", cursor, err)
		}
	}
}

func TestDelete_AbsentKeySucceeds(t *testing.T) {
	mock := &mockDynamoDBClient{
		DeleteItemFunc: func(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}
	client := NewClient(mock, "test-table")

	if err := client.Delete(context.Background(), "ORG#o1", "CL#gone"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUpdatePartial_CompilesSetExpression(t *testing.T) {
	var captured *dynamodb.UpdateItemInput
	mock := &mockDynamoDBClient{
		UpdateItemFunc: func(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			captured = input
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	client := NewClient(mock, "test-table")

	err := client.UpdatePartial(context.Background(), "ORG#o1", "CL#c1", Item{
		"status":  s("submitted"),
		"dueDate": s("2026-09-01"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Placeholders are assigned in sorted key order.
	wantExpr := "SET #k0 = :v0, #k1 = :v1"
	if aws.ToString(captured.UpdateExpression) != wantExpr {
		t.Errorf("expected expression %q, got %q", wantExpr, aws.ToString(captured.UpdateExpression))
	}
	if captured.ExpressionAttributeNames["#k0"] != "dueDate" || captured.ExpressionAttributeNames["#k1"] != "status" {
		t.Errorf("unexpected name mapping: %v", captured.ExpressionAttributeNames)
	}
	if got := captured.ExpressionAttributeValues[":v1"].(*types.AttributeValueMemberS).Value; got != "submitted" {
		t.Errorf("expected :v1 submitted, got %s", got)
	}
}

func TestUpdatePartial_NilFieldsDropped(t *testing.T) {
	var captured *dynamodb.UpdateItemInput
	mock := &mockDynamoDBClient{
		UpdateItemFunc: func(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			captured = input
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	client := NewClient(mock, "test-table")

	err := client.UpdatePartial(context.Background(), "ORG#o1", "CL#c1", Item{
		"title":      s("renamed"),
		"dueDate":    nil,
		"assigneeId": Null(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captured.ExpressionAttributeNames) != 2 {
		t.Fatalf("expected 2 surviving fields, got %v", captured.ExpressionAttributeNames)
	}
	// The explicit null survives as a written null.
	if _, ok := captured.ExpressionAttributeValues[":v0"].(*types.AttributeValueMemberNULL); !ok {
		t.Errorf("expected assigneeId to compile to a NULL value, got %v", captured.ExpressionAttributeValues[":v0"])
	}
}

func TestUpdatePartial_EmptyUpdateIssuesNoCall(t *testing.T) {
	mock := &mockDynamoDBClient{
		UpdateItemFunc: func(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			t.Fatal("empty update must not call the backend")
			return nil, nil
		},
	}
	client := NewClient(mock, "test-table")

	if err := client.UpdatePartial(context.Background(), "ORG#o1", "CL#c1", Item{"x": nil}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := client.UpdatePartial(context.Background(), "ORG#o1", "CL#c1", Item{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
