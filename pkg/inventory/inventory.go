package inventory

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/notefold/annotate/internal/models"
)

// DefaultIDColumn is the header name of the document id column in
// discovery-step exports.
const DefaultIDColumn = "document_id"

type ReaderConfig struct {
	IDColumn string // defaults to DefaultIDColumn
}

// ReadFile loads a document inventory CSV from disk.
func ReadFile(path string, config ReaderConfig) (*models.Inventory, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory: %w", err)
	}
	defer file.Close()
	return Read(file, config)
}

// Read parses a document inventory CSV. The first row is the header; the
// id column must be present. Column order and row order are preserved,
// duplicate ids included (the materializer dedups on output).
func Read(r io.Reader, config ReaderConfig) (*models.Inventory, error) {
	if config.IDColumn == "" {
		config.IDColumn = DefaultIDColumn
	}

	bufReader := bufio.NewReaderSize(r, 64*1024)

	// Skip UTF-8 BOM if present (0xEF 0xBB 0xBF)
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("inventory is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idIdx := -1
	for i, col := range header {
		if col == config.IDColumn {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("inventory has no %q column", config.IDColumn)
	}

	inv := &models.Inventory{Columns: header}

	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row+1, err)
		}
		row++

		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				fields[col] = record[i]
			} else {
				fields[col] = ""
			}
		}

		id := fields[config.IDColumn]
		if id == "" {
			return nil, fmt.Errorf("row %d has an empty %s", row, config.IDColumn)
		}

		inv.Docs = append(inv.Docs, models.Document{ID: id, Fields: fields})
	}

	return inv, nil
}
