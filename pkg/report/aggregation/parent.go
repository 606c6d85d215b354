package aggregation

import (
	"slices"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

// ParentIndex matches child rows to parent-side rows on the shared parent
// groupers. It is built once per calculator pass.
type ParentIndex struct {
	groupers []string
	rows     map[string]domain.Row
	order    []string
}

// NewParentIndex indexes parent rows by their values on groupers. Several
// parent rows landing on one key are collapsed: numbers are summed, other
// values are kept only when they agree. Once two values disagree the key
// stays null whatever later rows hold.
func NewParentIndex(groupers []string, rows []domain.Row) *ParentIndex {
	idx := &ParentIndex{
		groupers: slices.Clone(groupers),
		rows:     make(map[string]domain.Row, len(rows)),
	}
	conflicts := make(map[string]map[string]bool)
	for _, r := range rows {
		key := keyFor(r, groupers)
		id := encodeKey(key)
		if existing, ok := idx.rows[id]; ok {
			if conflicts[id] == nil {
				conflicts[id] = make(map[string]bool)
			}
			idx.rows[id] = mergeRows(existing, r, conflicts[id])
			continue
		}
		row := domain.NewRow(slices.Clone(groupers), key)
		for k, v := range r.Values {
			row.Values[k] = v
		}
		idx.rows[id] = row
		idx.order = append(idx.order, id)
	}
	return idx
}

// Match returns a copy of the parent row sharing row's parent-grouper values.
func (p *ParentIndex) Match(row domain.Row) *domain.Row {
	if p == nil {
		return nil
	}
	r, ok := p.rows[encodeKey(keyFor(row, p.groupers))]
	if !ok {
		return nil
	}
	c := r.Clone()
	return &c
}

func (p *ParentIndex) Len() int {
	if p == nil {
		return 0
	}
	return len(p.rows)
}

func keyFor(row domain.Row, groupers []string) []domain.Value {
	key := make([]domain.Value, len(groupers))
	for i, g := range groupers {
		key[i] = row.Get(g)
	}
	return key
}

func mergeRows(into, from domain.Row, conflicted map[string]bool) domain.Row {
	out := into.Clone()
	for k, v := range from.Values {
		cur, ok := out.Values[k]
		switch {
		case conflicted[k]:
		case !ok || cur.IsNull():
			out.Values[k] = v
		case v.IsNull():
		case cur.Kind() == domain.KindNumber && v.Kind() == domain.KindNumber:
			a, _ := cur.Number()
			b, _ := v.Number()
			out.Values[k] = domain.NumberValue(a + b)
		case !cur.Equal(v):
			out.Values[k] = domain.NullValue()
			conflicted[k] = true
		}
	}
	return out
}

// Collapse re-keys rows on a subset of their groupers, merging rows that end
// up on the same key the way NewParentIndex does, and sorts the result with
// order. Without groupers the result is a single row, even for no input.
func Collapse(groupers []string, rows []domain.Row, order map[string]string) []domain.Row {
	idx := NewParentIndex(groupers, rows)
	out := make([]domain.Row, 0, len(idx.order))
	for _, id := range idx.order {
		out = append(out, idx.rows[id].Clone())
	}
	if len(groupers) == 0 && len(out) == 0 {
		out = append(out, domain.NewRow(nil, nil))
	}
	SortRows(out, order)
	return out
}
