package feed

import (
	"time"
)

// Record is the raw text of one product entry. Data is owned by the caller
// once returned from the splitter.
type Record struct {
	Data      []byte
	Truncated bool // end of stream reached before the close marker
}

// Profile types

type Profile struct {
	Name        string          // Derived from filename (without .yml extension)
	RecordTag   string          `yaml:"record_tag"`
	Eligibility []string        `yaml:"eligibility"`
	Counters    ProfileCounters `yaml:"counters"`
	Fields      ProfileFields   `yaml:"fields"`
	Samples     ProfileSamples  `yaml:"samples"`
}

// ProfileCounters holds literal markers; a record counts once when it contains
// the marker (or, for Size and Color, any of the variants, case-insensitively).
type ProfileCounters struct {
	Gender       string   `yaml:"gender"`
	Size         []string `yaml:"size"`
	Color        []string `yaml:"color"`
	CurrentPrice string   `yaml:"current_price"`
	ListPrice    string   `yaml:"list_price"`
	URL          string   `yaml:"url"`
	Image        string   `yaml:"image"`
	ExtraImage   string   `yaml:"extra_image"`
}

// ProfileFields holds tag names whose enclosed value is extracted.
type ProfileFields struct {
	Category     string `yaml:"category"`
	Availability string `yaml:"availability"`
	Brand        string `yaml:"brand"`
	URL          string `yaml:"url"`
	Photo        string `yaml:"photo"`
	Name         string `yaml:"name"`
}

type ProfileSamples struct {
	URLs   int `yaml:"urls"`
	Photos int `yaml:"photos"`
	Names  int `yaml:"names"`
	Brands int `yaml:"brands"`
}

// Run types

type Job struct {
	PartnerID     string
	Source        string
	Destination   string
	DistinguishID string
}

type ReportMeta struct {
	PartnerID     string
	FileName      string
	DistinguishID string
	GeneratedAt   time.Time
}

type Result struct {
	Destination string
	Scanned     int
	Eligible    int
	Truncated   int
	Bytes       int64
	Duration    time.Duration
}
