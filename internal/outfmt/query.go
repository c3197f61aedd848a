package outfmt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/itchyny/gojq"
)

type queryKey struct{}

// WithQuery adds a jq query to the context
func WithQuery(ctx context.Context, query string) context.Context {
	return context.WithValue(ctx, queryKey{}, query)
}

// GetQuery retrieves the jq query from context
func GetQuery(ctx context.Context) string {
	if q, ok := ctx.Value(queryKey{}).(string); ok {
		return q
	}
	return ""
}

// NormalizeExpression undoes shell escaping of jq operators.
// Zsh escapes ! to \! even in single quotes, breaking operators like !=.
func NormalizeExpression(expr string) string {
	return strings.ReplaceAll(strings.TrimSpace(expr), `\!`, `!`)
}

// Query applies a jq expression to decoded JSON data. A single result is
// returned as-is; multiple results are returned as a slice.
func Query(data any, expression string) (any, error) {
	expression = NormalizeExpression(expression)
	if expression == "" {
		return data, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	iter := query.Run(data)
	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		results = append(results, v)
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

// QueryJSON decodes data and applies expression to it.
func QueryJSON(data []byte, expression string) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return Query(v, expression)
}

// ApplyQuery round-trips v through JSON so typed values can be queried.
func ApplyQuery(v any, expression string) (any, error) {
	if NormalizeExpression(expression) == "" {
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return QueryJSON(data, expression)
}

// WriteJSONFiltered writes v as JSON after an optional jq query.
func WriteJSONFiltered(w io.Writer, v any, query string, compact bool) error {
	filtered, err := ApplyQuery(v, query)
	if err != nil {
		return err
	}
	return WriteJSONMaybeCompact(w, filtered, compact)
}

// WriteJSONLines writes each element of items on its own line.
func WriteJSONLines(w io.Writer, items []any) error {
	for _, item := range items {
		if err := WriteJSONMaybeCompact(w, item, true); err != nil {
			return err
		}
	}
	return nil
}
