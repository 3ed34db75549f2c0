package models

// Document is one row of the source inventory. ID is the unique document
// identifier; Fields holds the pass-through columns keyed by header name.
type Document struct {
	ID     string
	Fields map[string]string
}

// Inventory is the ordered document list together with its column order.
// Row order and column order are preserved into the output artifact.
type Inventory struct {
	Columns []string
	Docs    []Document
}

// IDs returns the document ids in inventory order, duplicates included.
func (inv *Inventory) IDs() []string {
	ids := make([]string, 0, len(inv.Docs))
	for _, doc := range inv.Docs {
		ids = append(ids, doc.ID)
	}
	return ids
}

// Pair is one (document id, value) row returned by a warehouse query.
// A single id may appear in any number of pairs for the same dimension.
type Pair struct {
	ID    string
	Value string
}
