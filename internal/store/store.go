// Package store implements the keyed item store backing every entity in
// the checklist table: point reads and writes on the (PK, SK) composite
// key, prefix queries with opaque pagination cursors over the primary key
// or either GSI, and sparse field updates.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/checklists-vnext/checklist-service/internal/dynamo"
)

// Error types for store operations.
var (
	ErrStorage   = errors.New("storage error")
	ErrBadCursor = errors.New("invalid pagination cursor")
)

// Item is a raw table item keyed by attribute name.
type Item = map[string]types.AttributeValue

// DynamoDBClient defines the interface for DynamoDB operations.
type DynamoDBClient interface {
	GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Options controls a Query call.
type Options struct {
	// Limit caps the number of items per page; zero means no cap.
	Limit int32
	// Cursor resumes a previous query from its NextCursor.
	Cursor string
	// Index selects dynamo.IndexGSI1 or dynamo.IndexGSI2 in place of the
	// primary key. Empty queries the table itself.
	Index string
}

// Page is one page of query results.
type Page struct {
	Items []Item
	// NextCursor is non-empty when more items remain.
	NextCursor string
}

// Client executes single-item operations against the checklist table.
// It provides no cross-item atomicity; multi-item sequences are series of
// independent calls and callers own any cleanup on partial failure.
type Client struct {
	client    DynamoDBClient
	tableName string
}

// NewClient creates a new Client.
func NewClient(client DynamoDBClient, tableName string) *Client {
	return &Client{
		client:    client,
		tableName: tableName,
	}
}

// Put upserts an item wholesale. Last writer wins; no preconditions.
func (c *Client) Put(ctx context.Context, item Item) error {
	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("%w: put: %v", ErrStorage, err)
	}
	return nil
}

// Get returns the item at (pk, sk), or nil when absent.
func (c *Client) Get(ctx context.Context, pk, sk string) (Item, error) {
	output, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: Item{
			dynamo.AttrPK: &types.AttributeValueMemberS{Value: pk},
			dynamo.AttrSK: &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", ErrStorage, err)
	}
	return output.Item, nil
}

// Delete removes the item at (pk, sk). Deleting an absent key succeeds.
func (c *Client) Delete(ctx context.Context, pk, sk string) error {
	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key: Item{
			dynamo.AttrPK: &types.AttributeValueMemberS{Value: pk},
			dynamo.AttrSK: &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: delete: %v", ErrStorage, err)
	}
	return nil
}

// Query returns the items whose partition key equals pk and whose sort key
// begins with skPrefix (the whole partition when skPrefix is empty), in
// lexicographic sort-key order. opts.Index swaps in a GSI's key pair.
func (c *Client) Query(ctx context.Context, pk, skPrefix string, opts Options) (*Page, error) {
	pkAttr, skAttr := dynamo.AttrPK, dynamo.AttrSK
	switch opts.Index {
	case dynamo.IndexGSI1:
		pkAttr, skAttr = dynamo.AttrGSI1PK, dynamo.AttrGSI1SK
	case dynamo.IndexGSI2:
		pkAttr, skAttr = dynamo.AttrGSI2PK, dynamo.AttrGSI2SK
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String(pkAttr + " = :pk"),
		ExpressionAttributeValues: Item{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
	}
	if skPrefix != "" {
		input.KeyConditionExpression = aws.String(pkAttr + " = :pk AND begins_with(" + skAttr + ", :sk)")
		input.ExpressionAttributeValues[":sk"] = &types.AttributeValueMemberS{Value: skPrefix}
	}
	if opts.Index != "" {
		input.IndexName = aws.String(opts.Index)
	}
	if opts.Limit > 0 {
		input.Limit = aws.Int32(opts.Limit)
	}
	if opts.Cursor != "" {
		startKey, err := decodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		input.ExclusiveStartKey = startKey
	}

	output, err := c.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrStorage, err)
	}

	return &Page{
		Items:      output.Items,
		NextCursor: encodeCursor(output.LastEvaluatedKey),
	}, nil
}

// UpdatePartial sets exactly the given fields on the item at (pk, sk),
// leaving every other attribute untouched. Entries with a nil value are
// treated as absent and dropped; an AttributeValueMemberNULL is a concrete
// null and is written. An update reduced to zero fields issues no call.
func (c *Client) UpdatePartial(ctx context.Context, pk, sk string, fields Item) error {
	expr, names, values := compileUpdate(fields)
	if expr == "" {
		return nil
	}

	_, err := c.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: Item{
			dynamo.AttrPK: &types.AttributeValueMemberS{Value: pk},
			dynamo.AttrSK: &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("%w: update: %v", ErrStorage, err)
	}
	return nil
}
