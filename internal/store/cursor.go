package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Pagination cursors are base64 over the JSON-serialized last evaluated
// key. Every key attribute in the table and both GSIs is a string, so the
// serialized form is a flat name-to-string map. Cursors are opaque to
// callers and stable for the lifetime of a result set.

// encodeCursor serializes a LastEvaluatedKey. Returns "" when the query
// reached the end of the partition.
func encodeCursor(lastKey Item) string {
	if len(lastKey) == 0 {
		return ""
	}
	flat := make(map[string]string, len(lastKey))
	for name, attr := range lastKey {
		if s, ok := attr.(*types.AttributeValueMemberS); ok {
			flat[name] = s.Value
		}
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// decodeCursor parses a cursor back into an ExclusiveStartKey. A token not
// produced by encodeCursor yields ErrBadCursor.
func decodeCursor(cursor string) (Item, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	if len(flat) == 0 {
		return nil, ErrBadCursor
	}
	startKey := make(Item, len(flat))
	for name, value := range flat {
		startKey[name] = &types.AttributeValueMemberS{Value: value}
	}
	return startKey, nil
}
