package countries

import "slices"

// Index maps country names to their metric records.
// It is immutable after construction and safe for concurrent reads.
type Index struct {
	byName     map[string]Metric
	duplicates []string
}

// NewIndex builds an index over metrics. Later records shadow earlier ones
// with the same name.
func NewIndex(metrics []Metric) *Index {
	idx := &Index{byName: make(map[string]Metric, len(metrics))}
	for _, m := range metrics {
		if _, seen := idx.byName[m.CountryName]; seen && !slices.Contains(idx.duplicates, m.CountryName) {
			idx.duplicates = append(idx.duplicates, m.CountryName)
		}
		idx.byName[m.CountryName] = m
	}
	return idx
}

// Lookup returns the record for name. Matching is exact and case-sensitive.
func (i *Index) Lookup(name string) (Metric, bool) {
	if i == nil {
		return Metric{}, false
	}
	m, ok := i.byName[name]
	return m, ok
}

// Len returns the number of distinct names.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byName)
}

// Duplicates returns names that appeared more than once, in first-repeat order.
func (i *Index) Duplicates() []string {
	if i == nil {
		return nil
	}
	return slices.Clone(i.duplicates)
}
