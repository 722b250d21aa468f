package nn

import (
	"fmt"

	"github.com/born-ml/layergraph/internal/tensor"
)

// GroupLayout lists the sizes of the parameter groups a layer stores, in
// order. The same layout drives both StoreWeights and LoadWeights, so the
// flattened entry always splits back at the boundaries it was built from.
type GroupLayout []int

// Total returns the number of tensors in an entry with this layout.
func (g GroupLayout) Total() int {
	n := 0
	for _, size := range g {
		n += size
	}
	return n
}

// Flatten checks groups against the layout and concatenates them in order.
func (g GroupLayout) Flatten(groups ...[]*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(groups) != len(g) {
		return nil, fmt.Errorf("%w: %d groups, layout %v", ErrWeightLayout, len(groups), g)
	}
	out := make([]*tensor.Tensor, 0, g.Total())
	for i, group := range groups {
		if len(group) != g[i] {
			return nil, fmt.Errorf("%w: group %d has %d tensors, layout %v", ErrWeightLayout, i, len(group), g)
		}
		out = append(out, group...)
	}
	return out, nil
}

// Split slices a flattened entry back into its groups.
func (g GroupLayout) Split(entry []*tensor.Tensor) ([][]*tensor.Tensor, error) {
	if len(entry) != g.Total() {
		return nil, fmt.Errorf("%w: entry has %d tensors, layout %v needs %d", ErrWeightLayout, len(entry), g, g.Total())
	}
	groups := make([][]*tensor.Tensor, len(g))
	off := 0
	for i, size := range g {
		groups[i] = entry[off : off+size : off+size]
		off += size
	}
	return groups, nil
}

// WeightsContainer is an ordered, append-only store of parameter tensors,
// one entry per layer in graph order.
type WeightsContainer struct {
	entries [][]*tensor.Tensor
}

// NewWeightsContainer creates an empty container.
func NewWeightsContainer() *WeightsContainer {
	return &WeightsContainer{}
}

// Store appends one entry built by flattening groups in the order given.
// Calling Store with no groups appends an empty entry.
func (w *WeightsContainer) Store(groups ...[]*tensor.Tensor) {
	var entry []*tensor.Tensor
	for _, group := range groups {
		for _, t := range group {
			entry = append(entry, t.Clone())
		}
	}
	w.entries = append(w.entries, entry)
}

// StoreLayout validates groups against layout, then stores them as one entry.
func (w *WeightsContainer) StoreLayout(layout GroupLayout, groups ...[]*tensor.Tensor) error {
	if _, err := layout.Flatten(groups...); err != nil {
		return err
	}
	w.Store(groups...)
	return nil
}

// At returns the entry of the layer at index i.
// Panics if i is out of range.
func (w *WeightsContainer) At(i int) []*tensor.Tensor {
	if i < 0 || i >= len(w.entries) {
		panic(fmt.Sprintf("nn: weights index %d out of range [0, %d)", i, len(w.entries)))
	}
	out := make([]*tensor.Tensor, len(w.entries[i]))
	for j, t := range w.entries[i] {
		out[j] = t.Clone()
	}
	return out
}

// Len returns the number of entries.
func (w *WeightsContainer) Len() int {
	return len(w.entries)
}
