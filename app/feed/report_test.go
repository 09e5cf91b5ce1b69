package feed

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func testMeta(at time.Time) ReportMeta {
	return ReportMeta{
		PartnerID:     "42",
		FileName:      "feed.xml.gz",
		DistinguishID: "run-7",
		GeneratedAt:   at,
	}
}

func TestReporter_EmptyStats(t *testing.T) {
	report := string(NewReporter(DefaultProfile()).Run(NewStats(), testMeta(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))))

	expectedLines := []string{
		"Partner ID: 42",
		"File: feed.xml.gz",
		"Distinguish ID: run-7",
		"Generated at: 2025-01-02T03:04:05Z",
		"Total rows: 0",
		"Gender count: 0",
		"Size count: 0",
		"Color count: 0",
		"Current price count: 0",
		"List price count: 0",
		"URL count: 0",
		"Image count: 0",
		"Extra image count: 0",
	}
	for _, line := range expectedLines {
		if !strings.Contains(report, line+"\n") {
			t.Errorf("Report missing line %q", line)
		}
	}

	if strings.Count(report, "  (none)\n") != 6 {
		t.Errorf("Expected 6 empty sections, got report:\n%s", report)
	}
}

func TestReporter_SectionOrder(t *testing.T) {
	stats := aggregate(product("<category>Shoes</category>", "<availability>in stock</availability>", "<brand>Acme</brand>"))
	report := string(NewReporter(DefaultProfile()).Run(stats, testMeta(time.Now())))

	sections := []string{
		"Partner ID:",
		"File:",
		"Distinguish ID:",
		"Generated at:",
		"Total rows:",
		"Gender count:",
		"Size count:",
		"Color count:",
		"Current price count:",
		"List price count:",
		"Category distribution:",
		"Availability distribution:",
		"URL count:",
		"Image count:",
		"Extra image count:",
		"First 10 URLs:",
		"First 10 photos:",
		"First 20 names:",
		"Distinct brands (first 10):",
	}

	last := -1
	for _, section := range sections {
		idx := strings.Index(report, section)
		if idx < 0 {
			t.Fatalf("Section %q missing", section)
		}
		if idx <= last {
			t.Errorf("Section %q out of order", section)
		}
		last = idx
	}
}

func TestReporter_DistributionSortedByValue(t *testing.T) {
	stats := aggregate(
		product("<category>Shoes</category>"),
		product("<category>Bags</category>"),
		product("<category>Shoes</category>"),
		product("<category>Accessories</category>"),
	)
	report := string(NewReporter(DefaultProfile()).Run(stats, testMeta(time.Now())))

	expected := "Category distribution:\n  Accessories: 1\n  Bags: 1\n  Shoes: 2\n"
	if !strings.Contains(report, expected) {
		t.Errorf("Expected distribution block %q in:\n%s", expected, report)
	}
}

func TestReporter_Deterministic(t *testing.T) {
	records := []string{
		product("<category>B</category>", "<brand>Z</brand>", "<url>u1</url>"),
		product("<category>A</category>", "<brand>Y</brand>", "<url>u2</url>"),
		product("<category>C</category>", "<brand>X</brand>", "<name>n</name>"),
	}
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	first := NewReporter(DefaultProfile()).Run(aggregate(records...), testMeta(at))
	second := NewReporter(DefaultProfile()).Run(aggregate(records...), testMeta(at))

	if !bytes.Equal(first, second) {
		t.Errorf("Reports differ:\n%s\n---\n%s", first, second)
	}
}
