package materializer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/notefold/annotate/internal/models"
	"github.com/notefold/annotate/pkg/accumulator"
)

type MaterializerConfig struct {
	Dimensions []string // output column order for annotation cells
	Separator  string   // defaults to accumulator.DefaultSeparator
}

// Materializer joins accumulated annotations back onto the original
// inventory and writes the augmented table. Every distinct document id
// produces exactly one output row: duplicates keep the first occurrence,
// and an id with no annotations gets empty cells rather than being
// dropped.
type Materializer struct {
	config MaterializerConfig
}

func NewWithConfig(config MaterializerConfig) Materializer {
	if config.Separator == "" {
		config.Separator = accumulator.DefaultSeparator
	}
	return Materializer{config: config}
}

// Write emits the augmented CSV and returns the number of data rows
// written.
func (m *Materializer) Write(w io.Writer, inv *models.Inventory, acc *accumulator.Accumulator) (int, error) {
	writer := csv.NewWriter(w)

	header := make([]string, 0, len(inv.Columns)+len(m.config.Dimensions))
	header = append(header, inv.Columns...)
	header = append(header, m.config.Dimensions...)
	if err := writer.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	seen := make(map[string]bool, len(inv.Docs))
	rows := 0
	for _, doc := range inv.Docs {
		if seen[doc.ID] {
			continue
		}
		seen[doc.ID] = true

		record := make([]string, 0, len(header))
		for _, col := range inv.Columns {
			record = append(record, doc.Fields[col])
		}
		for _, dim := range m.config.Dimensions {
			record = append(record, acc.Render(doc.ID, dim, m.config.Separator))
		}

		if err := writer.Write(record); err != nil {
			return rows, fmt.Errorf("failed to write row for %s: %w", doc.ID, err)
		}
		rows++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return rows, fmt.Errorf("failed to flush output: %w", err)
	}
	return rows, nil
}

// WriteFile writes the augmented CSV to path, creating or truncating it.
func (m *Materializer) WriteFile(path string, inv *models.Inventory, acc *accumulator.Accumulator) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create output: %w", err)
	}

	rows, err := m.Write(file, inv, acc)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close output: %w", cerr)
	}
	return rows, err
}
