package member

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/checklists-vnext/checklist-service/internal/dynamo"
	"github.com/checklists-vnext/checklist-service/internal/store"
)

// mockDynamoDBClient implements store.DynamoDBClient with function fields.
type mockDynamoDBClient struct {
	QueryFunc      func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItemFunc func(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

func (m *mockDynamoDBClient) GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamoDBClient) PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoDBClient) DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDynamoDBClient) Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, input, opts...)
	}
	return &dynamodb.QueryOutput{}, nil
}

func (m *mockDynamoDBClient) UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if m.UpdateItemFunc != nil {
		return m.UpdateItemFunc(ctx, input, opts...)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func memberRow(userID, email, status string) store.Item {
	return store.Item{
		AttrUserID: &types.AttributeValueMemberS{Value: userID},
		AttrOrgID:  &types.AttributeValueMemberS{Value: "o1"},
		AttrEmail:  &types.AttributeValueMemberS{Value: email},
		AttrStatus: &types.AttributeValueMemberS{Value: status},
	}
}

func TestSyncActive_PendingMemberBecomesActive(t *testing.T) {
	var updated *dynamodb.UpdateItemInput
	mock := &mockDynamoDBClient{
		QueryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
				memberRow("u1", "owner@example.com", StatusActive),
				memberRow("u2", "new@example.com", StatusPending),
			}}, nil
		},
		UpdateItemFunc: func(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			updated = input
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	cache := NewMapCache()
	syncer := NewStatusSyncer(NewRepository(store.NewClient(mock, "test-table")), cache)

	// Case-insensitive email match.
	if err := syncer.SyncActive(context.Background(), "o1", "New@Example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated == nil {
		t.Fatal("expected an update for the pending member")
	}
	sk := updated.Key[dynamo.AttrSK].(*types.AttributeValueMemberS).Value
	if sk != "USER#u2" {
		t.Errorf("expected USER#u2 updated, got %s", sk)
	}
	if !cache.Seen("o1", "New@Example.com") {
		t.Error("expected pair cached after sync")
	}
}

func TestSyncActive_ActiveMemberLeftAlone(t *testing.T) {
	mock := &mockDynamoDBClient{
		QueryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
				memberRow("u1", "owner@example.com", StatusActive),
			}}, nil
		},
		UpdateItemFunc: func(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			t.Fatal("no update expected for an already-active member")
			return nil, nil
		},
	}
	cache := NewMapCache()
	syncer := NewStatusSyncer(NewRepository(store.NewClient(mock, "test-table")), cache)

	if err := syncer.SyncActive(context.Background(), "o1", "owner@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cache.Seen("o1", "owner@example.com") {
		t.Error("expected pair cached even without a status flip")
	}
}

func TestSyncActive_UnknownEmailNotCached(t *testing.T) {
	mock := &mockDynamoDBClient{
		QueryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
				memberRow("u1", "owner@example.com", StatusActive),
			}}, nil
		},
	}
	cache := NewMapCache()
	syncer := NewStatusSyncer(NewRepository(store.NewClient(mock, "test-table")), cache)

	if err := syncer.SyncActive(context.Background(), "o1", "stranger@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// An unknown email may belong to a member created later; the pair
	// must stay eligible for another sync.
	if cache.Seen("o1", "stranger@example.com") {
		t.Error("expected unknown email left uncached")
	}
}

func TestSyncActive_CachedPairSkipsScan(t *testing.T) {
	mock := &mockDynamoDBClient{
		QueryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			t.Fatal("no query expected for a cached pair")
			return nil, nil
		},
	}
	cache := NewMapCache()
	cache.Mark("o1", "owner@example.com")
	syncer := NewStatusSyncer(NewRepository(store.NewClient(mock, "test-table")), cache)

	if err := syncer.SyncActive(context.Background(), "o1", "owner@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSyncActive_MissingIdentityIsNoop(t *testing.T) {
	mock := &mockDynamoDBClient{
		QueryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			t.Fatal("no query expected without org and email")
			return nil, nil
		},
	}
	syncer := NewStatusSyncer(NewRepository(store.NewClient(mock, "test-table")), NewMapCache())

	if err := syncer.SyncActive(context.Background(), "", "someone@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := syncer.SyncActive(context.Background(), "o1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMapCache(t *testing.T) {
	cache := NewMapCache()
	if cache.Seen("o1", "a@example.com") {
		t.Error("expected empty cache to miss")
	}
	cache.Mark("o1", "a@example.com")
	if !cache.Seen("o1", "a@example.com") {
		t.Error("expected marked pair to hit")
	}
	if cache.Seen("o2", "a@example.com") {
		t.Error("expected other org to miss")
	}
}
