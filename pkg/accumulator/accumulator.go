package accumulator

import (
	"strings"
	"sync"

	"github.com/notefold/annotate/internal/models"
)

// DefaultSeparator joins multi-valued annotations at render time.
const DefaultSeparator = "; "

// Accumulator merges (id, dimension, value) triples into per-document
// value lists. A value is appended the first time it is seen for an
// id+dimension and ignored on every later merge, so replaying the same
// pairs any number of times yields the same lists. Values are never
// removed or reordered once appended.
type Accumulator struct {
	mu     sync.Mutex
	values map[string]map[string][]string
}

func New() *Accumulator {
	return &Accumulator{
		values: make(map[string]map[string][]string),
	}
}

// Add merges a single value for id in the given dimension. Safe for
// concurrent callers.
func (a *Accumulator) Add(id, dimension, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	dims, ok := a.values[id]
	if !ok {
		dims = make(map[string][]string)
		a.values[id] = dims
	}
	if contains(dims[dimension], value) {
		return
	}
	dims[dimension] = append(dims[dimension], value)
}

// Merge applies a batch of pairs for one dimension.
func (a *Accumulator) Merge(dimension string, pairs []models.Pair) {
	for _, p := range pairs {
		a.Add(p.ID, dimension, p.Value)
	}
}

// Values returns a copy of the value list for id in the given dimension,
// in first-seen order. The copy keeps callers from mutating internal
// state after the accumulator is handed to the materializer.
func (a *Accumulator) Values(id, dimension string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	vals := a.values[id][dimension]
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// Render joins the value list for id+dimension with the separator. An id
// with no observed values renders as the empty string.
func (a *Accumulator) Render(id, dimension, separator string) string {
	if separator == "" {
		separator = DefaultSeparator
	}
	return strings.Join(a.Values(id, dimension), separator)
}

// Len reports how many distinct document ids have at least one value.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.values)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
