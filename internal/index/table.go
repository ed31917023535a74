package index

// Table is the ordered trailer plus a key lookup.
//
// Records keep their trailer order. When two records share a key the later
// one wins the lookup; both stay in the ordered list so a rewrite replays
// every record.
type Table struct {
	order []*ArrayHeader
	byKey map[string]*ArrayHeader
}

// NewTable builds a table from records in trailer order.
func NewTable(headers []*ArrayHeader) (*Table, []string) {
	t := &Table{
		order: make([]*ArrayHeader, 0, len(headers)),
		byKey: make(map[string]*ArrayHeader, len(headers)),
	}
	var shadowed []string
	for _, h := range headers {
		if t.Add(h) {
			shadowed = append(shadowed, h.Key())
		}
	}
	return t, shadowed
}

// Add appends a record and reports whether it replaced an existing key.
func (t *Table) Add(h *ArrayHeader) bool {
	key := h.Key()
	_, replaced := t.byKey[key]
	t.order = append(t.order, h)
	t.byKey[key] = h
	return replaced
}

// Lookup returns the record for key, or nil.
func (t *Table) Lookup(key string) *ArrayHeader {
	return t.byKey[key]
}

// Has reports whether key is present.
func (t *Table) Has(key string) bool {
	_, ok := t.byKey[key]
	return ok
}

// Headers returns the records in trailer order.
func (t *Table) Headers() []*ArrayHeader {
	out := make([]*ArrayHeader, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of records, counting shadowed ones.
func (t *Table) Len() int {
	return len(t.order)
}

// Clone returns a table that can be extended without touching t.
func (t *Table) Clone() *Table {
	c := &Table{
		order: make([]*ArrayHeader, len(t.order), len(t.order)+1),
		byKey: make(map[string]*ArrayHeader, len(t.byKey)+1),
	}
	copy(c.order, t.order)
	for k, v := range t.byKey {
		c.byKey[k] = v
	}
	return c
}
