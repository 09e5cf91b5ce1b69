package blob

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw      string
		expected Location
	}{
		{"s3://feeds/42/feed.xml.gz", Location{Scheme: SchemeS3, Bucket: "feeds", Key: "42/feed.xml.gz"}},
		{"S3://feeds/feed.xml", Location{Scheme: SchemeS3, Bucket: "feeds", Key: "feed.xml"}},
		{"gs://bucket/a/b.xml", Location{Scheme: SchemeGCS, Bucket: "bucket", Key: "a/b.xml"}},
		{"s3://bucket", Location{Scheme: SchemeS3, Bucket: "bucket", Key: ""}},
		{"file:///tmp/feeds/../feed.xml", Location{Scheme: SchemeFile, Key: "/tmp/feed.xml"}},
		{"  /var/data/feed.xml  ", Location{Scheme: SchemeFile, Key: "/var/data/feed.xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			loc, err := ParseLocation(tt.raw)
			if err != nil {
				t.Fatalf("ParseLocation failed: %v", err)
			}
			if loc != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, loc)
			}
		})
	}
}

func TestParseLocationRelativePath(t *testing.T) {
	loc, err := ParseLocation("data/feed.xml")
	if err != nil {
		t.Fatal(err)
	}

	abs, _ := filepath.Abs("data/feed.xml")
	if loc.Scheme != SchemeFile || loc.Key != abs {
		t.Errorf("Expected absolute file location %s, got %+v", abs, loc)
	}
}

func TestParseLocationErrors(t *testing.T) {
	for _, raw := range []string{"", "   ", "s3:///key", "file://", "ftp://host/feed.xml"} {
		if _, err := ParseLocation(raw); err == nil {
			t.Errorf("Expected error for %q", raw)
		}
	}

	_, err := ParseLocation("http://example.com/feed.xml")
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("Expected unsupported scheme error, got %v", err)
	}
}

func TestLocationStringAndBase(t *testing.T) {
	s3 := Location{Scheme: SchemeS3, Bucket: "feeds", Key: "42/feed.xml.gz"}
	if s3.String() != "s3://feeds/42/feed.xml.gz" {
		t.Errorf("Unexpected string %s", s3.String())
	}
	if s3.Base() != "feed.xml.gz" {
		t.Errorf("Unexpected base %s", s3.Base())
	}

	local := Location{Scheme: SchemeFile, Key: "/tmp/feed.xml"}
	if local.String() != "file:///tmp/feed.xml" {
		t.Errorf("Unexpected string %s", local.String())
	}
	if local.Base() != "feed.xml" {
		t.Errorf("Unexpected base %s", local.Base())
	}
}

func TestReportLocation(t *testing.T) {
	tests := []struct {
		destination string
		expected    string
	}{
		{"s3://reports/42/", "s3://reports/42/feed_stats_42_run-1.txt"},
		{"s3://reports/42", "s3://reports/42/feed_stats_42_run-1.txt"},
		{"s3://reports", "s3://reports/feed_stats_42_run-1.txt"},
		{"s3://reports/42/custom.txt", "s3://reports/42/custom.txt"},
		{"gs://reports/daily/", "gs://reports/daily/feed_stats_42_run-1.txt"},
		{"/tmp/reports", "file:///tmp/reports/feed_stats_42_run-1.txt"},
		{"file:///tmp/reports/out.txt", "file:///tmp/reports/out.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.destination, func(t *testing.T) {
			loc, err := ReportLocation(tt.destination, "42", "run-1")
			if err != nil {
				t.Fatalf("ReportLocation failed: %v", err)
			}
			if loc.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, loc.String())
			}
		})
	}

	loc, err := ReportLocation("s3://reports/", "acme corp", "run/1")
	if err != nil {
		t.Fatal(err)
	}
	if loc.Key != "feed_stats_acme_corp_run_1.txt" {
		t.Errorf("IDs should be reduced to safe name characters, got %s", loc.Key)
	}

	if _, err := ReportLocation("", "42", "run-1"); err == nil {
		t.Error("Expected error for empty destination")
	}
}
