package outfmt

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestWithQuery(t *testing.T) {
	ctx := WithQuery(context.Background(), ".name")
	if got := GetQuery(ctx); got != ".name" {
		t.Errorf("GetQuery = %q", got)
	}
	if got := GetQuery(context.Background()); got != "" {
		t.Errorf("GetQuery on empty context = %q", got)
	}
}

func TestNormalizeExpression(t *testing.T) {
	if got := NormalizeExpression(` .[] | select(.id \!= 1) `); got != `.[] | select(.id != 1)` {
		t.Errorf("NormalizeExpression = %q", got)
	}
}

func TestQueryJSON(t *testing.T) {
	data := []byte(`[{"id":1,"species":"bass"},{"id":2,"species":"mackerel"}]`)

	single, err := QueryJSON(data, `.[0].species`)
	if err != nil {
		t.Fatalf("QueryJSON single: %v", err)
	}
	if single != "bass" {
		t.Errorf("single = %v", single)
	}

	multi, err := QueryJSON(data, `.[].id`)
	if err != nil {
		t.Fatalf("QueryJSON multi: %v", err)
	}
	if !reflect.DeepEqual(multi, []any{float64(1), float64(2)}) {
		t.Errorf("multi = %#v", multi)
	}

	none, err := QueryJSON(data, "")
	if err != nil {
		t.Fatalf("QueryJSON empty: %v", err)
	}
	if items, ok := none.([]any); !ok || len(items) != 2 {
		t.Errorf("empty expression should return the input, got %#v", none)
	}
}

func TestQuery_Errors(t *testing.T) {
	tests := []struct {
		data []byte
		expr string
		want string
	}{
		{[]byte(`{"a":1}`), `.a |`, "invalid jq expression"},
		{[]byte(`{"a":1}`), `.a[0]`, "jq error"},
		{[]byte(`not json`), `.`, "invalid JSON"},
	}
	for _, tt := range tests {
		_, err := QueryJSON(tt.data, tt.expr)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("QueryJSON(%s, %q) error = %v, want %q", tt.data, tt.expr, err, tt.want)
		}
	}
}

func TestApplyQuery_TypedValue(t *testing.T) {
	type record struct {
		Name string `json:"name"`
	}
	got, err := ApplyQuery([]record{{Name: "a"}, {Name: "b"}}, `map(.name)`)
	if err != nil {
		t.Fatalf("ApplyQuery: %v", err)
	}
	if !reflect.DeepEqual(got, []any{"a", "b"}) {
		t.Errorf("ApplyQuery = %#v", got)
	}
}

func TestWriteJSONFiltered(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONFiltered(&buf, map[string]string{"name": "test", "id": "123"}, ".name", false); err != nil {
		t.Fatalf("WriteJSONFiltered: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `"test"` {
		t.Errorf("output = %q", got)
	}
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONLines(&buf, []any{map[string]any{"a": 1}, "x"}); err != nil {
		t.Fatalf("WriteJSONLines: %v", err)
	}
	if got := buf.String(); got != "{\"a\":1}\n\"x\"\n" {
		t.Errorf("output = %q", got)
	}
}
