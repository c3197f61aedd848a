package outfmt

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

type catchRow struct {
	ID      int    `json:"id"`
	Species string `json:"species"`
}

func TestFormatter_JSON(t *testing.T) {
	var out, errOut bytes.Buffer
	ctx := WithMode(context.Background(), JSON)
	f := NewFormatter(ctx, &out, &errOut)

	if f.StartTable("ID", "SPECIES") {
		t.Error("StartTable should return false in JSON mode")
	}
	if err := f.Output([]catchRow{{1, "bass"}}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if !strings.Contains(out.String(), `"species": "bass"`) {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestFormatter_JSONLWithQuery(t *testing.T) {
	var out bytes.Buffer
	ctx := WithQuery(WithMode(context.Background(), JSONL), "map(.species)")
	f := NewFormatter(ctx, &out, &out)

	if err := f.Output([]catchRow{{1, "bass"}, {2, "rockfish"}}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if out.String() != "\"bass\"\n\"rockfish\"\n" {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestFormatter_Table(t *testing.T) {
	var out, errOut bytes.Buffer
	f := NewFormatter(context.Background(), &out, &errOut)

	if !f.StartTable("ID", "SPECIES") {
		t.Fatal("StartTable should return true in text mode")
	}
	f.Row("1", "bass")
	f.Row("22", "rockfish")
	if err := f.EndTable(); err != nil {
		t.Fatalf("EndTable: %v", err)
	}
	if err := f.Output([]catchRow{{1, "bass"}}); err != nil || strings.Contains(out.String(), "{") {
		t.Errorf("Output should be a no-op in text mode: %v %s", err, out.String())
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[2], "22  rockfish") {
		t.Errorf("unexpected table:\n%s", out.String())
	}

	f.Empty("No catches found")
	if strings.TrimSpace(errOut.String()) != "No catches found" {
		t.Errorf("Empty wrote %q", errOut.String())
	}
}
