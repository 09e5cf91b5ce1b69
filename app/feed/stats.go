package feed

import (
	"sort"
)

// Stats is the accumulator filled by the Aggregator. It has a single owner
// for the duration of a run.
type Stats struct {
	TotalRows    int
	Gender       int
	Size         int
	Color        int
	CurrentPrice int
	ListPrice    int
	URLs         int
	Images       int
	ExtraImages  int

	Categories   map[string]int
	Availability map[string]int
	Brands       map[string]int

	URLSamples   []string
	PhotoSamples []string
	NameSamples  []string
}

func NewStats() *Stats {
	return &Stats{
		Categories:   make(map[string]int),
		Availability: make(map[string]int),
		Brands:       make(map[string]int),
	}
}

// DistinctBrands returns up to limit brand values in sorted order.
func (s *Stats) DistinctBrands(limit int) []string {
	brands := sortedKeys(s.Brands)
	if len(brands) > limit {
		brands = brands[:limit]
	}
	return brands
}

type TableEntry struct {
	Value string
	Count int
}

// SortedTable returns the entries of a categorical table sorted by value.
func SortedTable(table map[string]int) []TableEntry {
	keys := sortedKeys(table)
	entries := make([]TableEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, TableEntry{Value: key, Count: table[key]})
	}
	return entries
}

func sortedKeys(table map[string]int) []string {
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func appendSample(samples []string, value string, limit int) []string {
	if len(samples) >= limit {
		return samples
	}
	return append(samples, value)
}
