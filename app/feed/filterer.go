package feed

import (
	"bytes"
	"fmt"
)

// Filterer decides record eligibility: every marker of the profile must be
// present somewhere in the record text.
type Filterer struct {
	markers [][]byte
}

func NewFilterer(profile *Profile) *Filterer {
	markers := make([][]byte, 0, len(profile.Eligibility))
	for _, marker := range profile.Eligibility {
		markers = append(markers, []byte(marker))
	}
	return &Filterer{markers: markers}
}

func (f *Filterer) IsEligible(record []byte) bool {
	eligible, _ := f.Check(record)
	return eligible
}

// Check reports eligibility and, for an ineligible record, the first marker it lacks.
func (f *Filterer) Check(record []byte) (bool, string) {
	for _, marker := range f.markers {
		if !bytes.Contains(record, marker) {
			return false, fmt.Sprintf("missing %s", marker)
		}
	}
	return true, ""
}
