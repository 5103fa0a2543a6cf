package store

import (
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// compileUpdate translates a sparse field map into a SET expression with
// generated placeholders. Nil values mark fields the caller left absent
// and are dropped; everything else, explicit nulls included, is written.
// Returns an empty expression when no fields survive.
func compileUpdate(fields Item) (string, map[string]string, Item) {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "", nil, nil
	}
	sort.Strings(keys)

	expr := "SET "
	names := make(map[string]string, len(keys))
	values := make(Item, len(keys))
	for i, k := range keys {
		if i > 0 {
			expr += ", "
		}
		name := fmt.Sprintf("#k%d", i)
		value := fmt.Sprintf(":v%d", i)
		expr += name + " = " + value
		names[name] = k
		values[value] = fields[k]
	}
	return expr, names, values
}

// Null is the attribute value that clears a field, as distinct from
// leaving it out of an update.
func Null() types.AttributeValue {
	return &types.AttributeValueMemberNULL{Value: true}
}

// S wraps a string attribute value.
func S(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

// StringList wraps a slice of strings as a list attribute value.
func StringList(values []string) types.AttributeValue {
	list := make([]types.AttributeValue, len(values))
	for i, v := range values {
		list[i] = &types.AttributeValueMemberS{Value: v}
	}
	return &types.AttributeValueMemberL{Value: list}
}
