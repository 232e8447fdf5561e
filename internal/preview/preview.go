// Package preview renders the renderer-output preview matrix: every
// combination of present/absent argument values for a compiled template,
// bounded so subset enumeration can never stall the editing thread.
package preview

import (
	"fmt"
	"math/rand"

	"github.com/brianvoe/gofakeit/v7"
)

// DefaultSubsetCap bounds how many argument subsets a matrix may enumerate.
const DefaultSubsetCap = 4096

// DefaultSampleBudget bounds how many subsets are drawn when sampling past
// the cap.
const DefaultSampleBudget = 256

// Renderer is the external formatter contract. A nil value in values means
// the argument is absent; the renderer decides how absence collapses
// bracketed groups. Errors are surfaced inline by the matrix, never
// propagated.
type Renderer interface {
	Format(template string, values []*string) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(template string, values []*string) (string, error)

// Format calls f.
func (f RendererFunc) Format(template string, values []*string) (string, error) {
	return f(template, values)
}

// Config controls matrix generation.
type Config struct {
	// SubsetCap is the hard bound on enumerated subsets. Default
	// DefaultSubsetCap.
	SubsetCap int
	// SampleBudget, when positive, switches the over-cap behavior from a
	// single advisory row to random sampling without replacement of this
	// many subsets.
	SampleBudget int
	// Seed fixes the sampling order; zero means nondeterministic.
	Seed int64
}

// DefaultConfig returns the bounds used when the caller passes nil.
func DefaultConfig() *Config {
	return &Config{SubsetCap: DefaultSubsetCap}
}

// Row is one preview line: which arguments were present and what the
// renderer produced (or the inline error text).
type Row struct {
	Present  []bool `json:"present"`
	Output   string `json:"output"`
	Advisory bool   `json:"advisory,omitempty"`
}

// Matrix enumerates the non-empty subsets of the given argument values
// against the renderer. With n arguments there are 2^n-1 subsets; past the
// configured cap the matrix degrades to one advisory row, or to a random
// sample when a sample budget is configured. Renderer failures become the
// row's output text.
func Matrix(r Renderer, template string, values []string, cfg *Config) []Row {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	limit := cfg.SubsetCap
	if limit <= 0 {
		limit = DefaultSubsetCap
	}

	n := len(values)
	if n == 0 {
		return nil
	}

	// 2^n-1 without overflow concern for any realistic argument count.
	if n > 62 || (uint64(1)<<uint(n))-1 > uint64(limit) {
		if cfg.SampleBudget > 0 {
			return sample(r, template, values, cfg)
		}
		return []Row{{
			Advisory: true,
			Output: fmt.Sprintf(
				"%d argument combinations exceed the preview limit of %d; narrow the selection",
				subsetCount(n), limit),
		}}
	}

	rows := make([]Row, 0, (1<<uint(n))-1)
	for mask := uint64(1); mask < uint64(1)<<uint(n); mask++ {
		rows = append(rows, renderMask(r, template, values, mask))
	}
	return rows
}

// SampleValues synthesizes a plausible value per argument name for hosts
// that want a preview before the user has supplied any real values.
func SampleValues(names []string) []string {
	// Fixed seed: the same names always preview with the same values.
	faker := gofakeit.New(11)
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = sampleFor(faker, name)
	}
	return values
}

func sampleFor(faker *gofakeit.Faker, name string) string {
	switch name {
	case "Author", "Editor", "Translator":
		return faker.LastName()
	case "Year", "Date":
		return fmt.Sprintf("%d", faker.Year())
	case "Pages":
		return fmt.Sprintf("%d-%d", faker.Number(1, 200), faker.Number(201, 400))
	case "City", "Place":
		return faker.City()
	case "Publisher":
		return faker.Company()
	default:
		return faker.Word()
	}
}

// sample draws distinct subset masks without replacement up to the budget.
func sample(r Renderer, template string, values []string, cfg *Config) []Row {
	n := len(values)
	budget := cfg.SampleBudget
	if total := subsetCount(n); uint64(budget) > total {
		budget = int(total)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	seen := make(map[uint64]bool, budget)
	rows := make([]Row, 0, budget)
	for len(rows) < budget {
		mask := randomMask(rng, n)
		if seen[mask] {
			continue
		}
		seen[mask] = true
		rows = append(rows, renderMask(r, template, values, mask))
	}
	return rows
}

// randomMask draws a uniform non-zero subset mask over n arguments.
func randomMask(rng *rand.Rand, n int) uint64 {
	if n >= 63 {
		n = 62
	}
	for {
		mask := uint64(rng.Int63()) & ((uint64(1) << uint(n)) - 1)
		if mask != 0 {
			return mask
		}
	}
}

func renderMask(r Renderer, template string, values []string, mask uint64) Row {
	present := make([]bool, len(values))
	args := make([]*string, len(values))
	for i := range values {
		if mask&(uint64(1)<<uint(i)) != 0 {
			present[i] = true
			v := values[i]
			args[i] = &v
		}
	}

	out, err := r.Format(template, args)
	if err != nil {
		out = fmt.Sprintf("render error: %v", err)
	}
	return Row{Present: present, Output: out}
}

func subsetCount(n int) uint64 {
	if n > 62 {
		n = 62
	}
	return (uint64(1) << uint(n)) - 1
}
