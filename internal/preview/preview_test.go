package preview

import (
	"errors"
	"strings"
	"testing"
)

// joinRenderer is a minimal stand-in formatter: it joins the present
// values with spaces. The real renderer's null-dropping semantics are
// external and not under test here.
var joinRenderer = RendererFunc(func(template string, values []*string) (string, error) {
	var parts []string
	for _, v := range values {
		if v != nil {
			parts = append(parts, *v)
		}
	}
	return strings.Join(parts, " "), nil
})

func TestMatrixEnumeratesAllSubsets(t *testing.T) {
	rows := Matrix(joinRenderer, "[%s]", []string{"Smith", "2024"}, nil)

	if len(rows) != 3 { // 2^2-1
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	outputs := make(map[string]bool)
	for _, row := range rows {
		if row.Advisory {
			t.Errorf("unexpected advisory row: %q", row.Output)
		}
		outputs[row.Output] = true
	}
	for _, want := range []string{"Smith", "2024", "Smith 2024"} {
		if !outputs[want] {
			t.Errorf("missing subset output %q (got %v)", want, outputs)
		}
	}
}

func TestMatrixCapProducesSingleAdvisoryRow(t *testing.T) {
	// 13 arguments: 2^13-1 = 8191 subsets against a 4096 cap.
	values := make([]string, 13)
	for i := range values {
		values[i] = "v"
	}

	rows := Matrix(joinRenderer, "[%s]", values, &Config{SubsetCap: 4096})
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want exactly 1 advisory row", len(rows))
	}
	if !rows[0].Advisory {
		t.Error("over-cap row not flagged as advisory")
	}
	if !strings.Contains(rows[0].Output, "8191") {
		t.Errorf("advisory %q does not name the subset count", rows[0].Output)
	}
}

func TestMatrixSamplingWithoutReplacement(t *testing.T) {
	values := make([]string, 13)
	for i := range values {
		values[i] = "v"
	}

	cfg := &Config{SubsetCap: 4096, SampleBudget: 64, Seed: 7}
	rows := Matrix(joinRenderer, "[%s]", values, cfg)

	if len(rows) != 64 {
		t.Fatalf("got %d rows, want sample budget of 64", len(rows))
	}

	seen := make(map[string]bool)
	for _, row := range rows {
		key := ""
		for _, p := range row.Present {
			if p {
				key += "1"
			} else {
				key += "0"
			}
		}
		if seen[key] {
			t.Fatalf("subset %s sampled twice", key)
		}
		seen[key] = true
	}
}

func TestMatrixSampleBudgetCappedBySubsetCount(t *testing.T) {
	// Two arguments have only 3 subsets; a larger budget must not spin
	// looking for a fourth distinct mask.
	cfg := &Config{SubsetCap: 2, SampleBudget: 100, Seed: 1}
	rows := Matrix(joinRenderer, "[%s]", []string{"a", "b"}, cfg)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want all 3 subsets", len(rows))
	}
}

func TestMatrixUnderCapStaysExhaustive(t *testing.T) {
	values := []string{"a", "b", "c"}
	rows := Matrix(joinRenderer, "[%s]", values, &Config{SubsetCap: 7})
	if len(rows) != 7 {
		t.Errorf("got %d rows, want 7 (cap exactly met, no degradation)", len(rows))
	}
}

func TestMatrixRendererErrorSurfacedInline(t *testing.T) {
	failing := RendererFunc(func(string, []*string) (string, error) {
		return "", errors.New("broken template")
	})

	rows := Matrix(failing, "[%s]", []string{"x"}, nil)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if !strings.Contains(rows[0].Output, "broken template") {
		t.Errorf("renderer error not surfaced inline: %q", rows[0].Output)
	}
}

func TestMatrixNoArguments(t *testing.T) {
	if rows := Matrix(joinRenderer, "[%s]", nil, nil); rows != nil {
		t.Errorf("Matrix with no arguments = %v, want nil", rows)
	}
}

func TestSampleValuesDeterministic(t *testing.T) {
	names := []string{"Author", "Year", "Pages", "Publisher", "Anything"}

	a := SampleValues(names)
	b := SampleValues(names)

	if len(a) != len(names) {
		t.Fatalf("got %d values, want %d", len(a), len(names))
	}
	for i := range a {
		if a[i] == "" {
			t.Errorf("empty sample value for %q", names[i])
		}
		if a[i] != b[i] {
			t.Errorf("sample for %q not deterministic: %q vs %q", names[i], a[i], b[i])
		}
	}
}
