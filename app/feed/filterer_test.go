package feed

import (
	"strings"
	"testing"
)

func TestFilterer_AllMarkersPresent(t *testing.T) {
	filterer := NewFilterer(DefaultProfile())

	if !filterer.IsEligible([]byte(product("<name>A</name>"))) {
		t.Error("Record with all five markers should be eligible")
	}
}

func TestFilterer_AnyMissingMarkerRejects(t *testing.T) {
	filterer := NewFilterer(DefaultProfile())

	for _, marker := range eligibleMarkers {
		record := productWithout(marker, "<name>A</name>")
		if strings.Contains(record, marker) {
			t.Fatalf("Test record still contains %s", marker)
		}

		eligible, reason := filterer.Check([]byte(record))
		if eligible {
			t.Errorf("Record without %s should not be eligible", marker)
		}
		if !strings.Contains(reason, marker) {
			t.Errorf("Expected reason to name %s, got %q", marker, reason)
		}
	}
}

func TestFilterer_ValueMustMatchExactly(t *testing.T) {
	filterer := NewFilterer(DefaultProfile())

	record := strings.Replace(product(), "<in_stock>true</in_stock>", "<in_stock>false</in_stock>", 1)
	if filterer.IsEligible([]byte(record)) {
		t.Error("in_stock false should not be eligible")
	}

	record = strings.Replace(product(), "<visible>true</visible>", "<visible>TRUE</visible>", 1)
	if filterer.IsEligible([]byte(record)) {
		t.Error("Marker matching should be case-sensitive")
	}
}

func TestFilterer_MarkersMayAppearAnywhere(t *testing.T) {
	filterer := NewFilterer(DefaultProfile())

	record := "<product><variants><variant>" + strings.Join(eligibleMarkers, "") + "</variant></variants></product>"
	if !filterer.IsEligible([]byte(record)) {
		t.Error("Nested markers should count")
	}
}

func TestFilterer_EmptyRecord(t *testing.T) {
	filterer := NewFilterer(DefaultProfile())

	if filterer.IsEligible(nil) {
		t.Error("Empty record should not be eligible")
	}
}
