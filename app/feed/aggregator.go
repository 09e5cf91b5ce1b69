package feed

import (
	"bytes"

	"golang.org/x/text/cases"
)

type field struct {
	open  []byte
	close []byte
}

func newField(name string) field {
	return field{open: []byte(openTag(name)), close: []byte(closeTag(name))}
}

// extract returns the text strictly between the first open marker and the
// first close marker after it.
func (f field) extract(record []byte) (string, bool) {
	i := bytes.Index(record, f.open)
	if i < 0 {
		return "", false
	}
	rest := record[i+len(f.open):]
	j := bytes.Index(rest, f.close)
	if j < 0 {
		return "", false
	}
	return string(rest[:j]), true
}

// Aggregator folds eligible records into a Stats value. Each metric reads the
// record on its own, so a missing or broken field only affects that metric.
// Not safe for concurrent use.
type Aggregator struct {
	stats   *Stats
	samples ProfileSamples
	folder  cases.Caser

	gender       []byte
	currentPrice []byte
	listPrice    []byte
	url          []byte
	image        []byte
	extraImage   []byte
	size         [][]byte
	color        [][]byte

	category     field
	availability field
	brand        field
	urlValue     field
	photoValue   field
	nameValue    field
}

func NewAggregator(profile *Profile) *Aggregator {
	folder := cases.Fold()
	return &Aggregator{
		stats:        NewStats(),
		samples:      profile.Samples,
		folder:       folder,
		gender:       []byte(profile.Counters.Gender),
		currentPrice: []byte(profile.Counters.CurrentPrice),
		listPrice:    []byte(profile.Counters.ListPrice),
		url:          []byte(profile.Counters.URL),
		image:        []byte(profile.Counters.Image),
		extraImage:   []byte(profile.Counters.ExtraImage),
		size:         foldMarkers(folder, profile.Counters.Size),
		color:        foldMarkers(folder, profile.Counters.Color),
		category:     newField(profile.Fields.Category),
		availability: newField(profile.Fields.Availability),
		brand:        newField(profile.Fields.Brand),
		urlValue:     newField(profile.Fields.URL),
		photoValue:   newField(profile.Fields.Photo),
		nameValue:    newField(profile.Fields.Name),
	}
}

func foldMarkers(folder cases.Caser, markers []string) [][]byte {
	folded := make([][]byte, 0, len(markers))
	for _, marker := range markers {
		folded = append(folded, folder.Bytes([]byte(marker)))
	}
	return folded
}

// Update applies one eligible record. Callers must not pass ineligible records.
func (a *Aggregator) Update(record []byte) {
	s := a.stats
	s.TotalRows++

	s.Gender += count(record, a.gender)
	s.CurrentPrice += count(record, a.currentPrice)
	s.ListPrice += count(record, a.listPrice)
	s.URLs += count(record, a.url)
	s.Images += count(record, a.image)
	s.ExtraImages += count(record, a.extraImage)

	folded := a.folder.Bytes(record)
	s.Size += countAny(folded, a.size)
	s.Color += countAny(folded, a.color)

	if value, ok := a.category.extract(record); ok {
		s.Categories[value]++
	}
	if value, ok := a.availability.extract(record); ok {
		s.Availability[value]++
	}
	if value, ok := a.brand.extract(record); ok {
		s.Brands[value]++
	}

	if len(s.URLSamples) < a.samples.URLs {
		if value, ok := a.urlValue.extract(record); ok {
			s.URLSamples = appendSample(s.URLSamples, value, a.samples.URLs)
		}
	}
	if len(s.PhotoSamples) < a.samples.Photos {
		if value, ok := a.photoValue.extract(record); ok {
			s.PhotoSamples = appendSample(s.PhotoSamples, value, a.samples.Photos)
		}
	}
	if len(s.NameSamples) < a.samples.Names {
		if value, ok := a.nameValue.extract(record); ok {
			s.NameSamples = appendSample(s.NameSamples, value, a.samples.Names)
		}
	}
}

func (a *Aggregator) Stats() *Stats {
	return a.stats
}

func count(record, marker []byte) int {
	if bytes.Contains(record, marker) {
		return 1
	}
	return 0
}

// countAny counts a record once when any of the markers is present.
func countAny(record []byte, markers [][]byte) int {
	for _, marker := range markers {
		if bytes.Contains(record, marker) {
			return 1
		}
	}
	return 0
}
