package report

import (
	"context"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

// Node is one level of the nested view. Inner nodes carry Children, leaves
// carry Values.
type Node struct {
	Grouper  string                  `json:"grouper,omitempty"`
	Key      domain.Value            `json:"key"`
	Values   map[string]domain.Value `json:"values,omitempty"`
	Children []Node                  `json:"children,omitempty"`
}

// FlatData renders each row as a plain map of groupers and values.
func (r *Report) FlatData(ctx context.Context) ([]map[string]any, error) {
	rows, err := r.Data(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = row.Flat()
	}
	return out, nil
}

// HashedData indexes rows by their hash key, e.g. ["east","2024-01"]. Every
// row of Data gets its own entry.
func (r *Report) HashedData(ctx context.Context) (map[string]domain.Row, error) {
	rows, err := r.Data(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Row, len(rows))
	for _, row := range rows {
		out[row.HashKey()] = row
	}
	return out, nil
}

// NestedData builds a tree with one level per grouper. Sibling order follows
// the first appearance of each key in Data.
func (r *Report) NestedData(ctx context.Context) ([]Node, error) {
	rows, err := r.Data(ctx)
	if err != nil {
		return nil, err
	}
	return nest(r.config.Groupers, 0, rows), nil
}

func nest(groupers []string, level int, rows []domain.Row) []Node {
	if level >= len(groupers) {
		out := make([]Node, 0, len(rows))
		for _, row := range rows {
			out = append(out, Node{Values: row.Values})
		}
		return out
	}

	var (
		order   []string
		buckets = make(map[string][]domain.Row)
		keys    = make(map[string]domain.Value)
	)
	for _, row := range rows {
		k := row.Get(groupers[level])
		id := domain.HashKey([]domain.Value{k})
		if _, ok := buckets[id]; !ok {
			order = append(order, id)
			keys[id] = k
		}
		buckets[id] = append(buckets[id], row)
	}

	out := make([]Node, 0, len(order))
	for _, id := range order {
		node := Node{Grouper: groupers[level], Key: keys[id]}
		if level == len(groupers)-1 {
			// Leaves of the last level carry the values directly.
			node.Values = buckets[id][0].Values
		} else {
			node.Children = nest(groupers, level+1, buckets[id])
		}
		out = append(out, node)
	}
	return out
}
