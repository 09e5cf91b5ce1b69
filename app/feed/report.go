package feed

import (
	"bytes"
	"fmt"
	"time"
)

const reportRule = "========================================"

type Reporter struct {
	samples ProfileSamples
}

func NewReporter(profile *Profile) *Reporter {
	return &Reporter{samples: profile.Samples}
}

// Run renders the report. Apart from the header timestamp the output depends
// only on the accumulated values.
func (r *Reporter) Run(stats *Stats, meta ReportMeta) []byte {
	var buf bytes.Buffer

	buf.WriteString("Feed statistics report\n")
	r.writeValue(&buf, "Partner ID", meta.PartnerID)
	r.writeValue(&buf, "File", meta.FileName)
	r.writeValue(&buf, "Distinguish ID", meta.DistinguishID)
	r.writeValue(&buf, "Generated at", meta.GeneratedAt.Format(time.RFC3339))
	buf.WriteString(reportRule + "\n\n")

	r.writeCount(&buf, "Total rows", stats.TotalRows)
	r.writeCount(&buf, "Gender count", stats.Gender)
	r.writeCount(&buf, "Size count", stats.Size)
	r.writeCount(&buf, "Color count", stats.Color)
	r.writeCount(&buf, "Current price count", stats.CurrentPrice)
	r.writeCount(&buf, "List price count", stats.ListPrice)
	buf.WriteString("\n")

	r.writeTable(&buf, "Category distribution", stats.Categories)
	r.writeTable(&buf, "Availability distribution", stats.Availability)

	r.writeCount(&buf, "URL count", stats.URLs)
	r.writeCount(&buf, "Image count", stats.Images)
	r.writeCount(&buf, "Extra image count", stats.ExtraImages)
	buf.WriteString("\n")

	r.writeList(&buf, fmt.Sprintf("First %d URLs", r.samples.URLs), stats.URLSamples)
	r.writeList(&buf, fmt.Sprintf("First %d photos", r.samples.Photos), stats.PhotoSamples)
	r.writeList(&buf, fmt.Sprintf("First %d names", r.samples.Names), stats.NameSamples)
	r.writeList(&buf, fmt.Sprintf("Distinct brands (first %d)", r.samples.Brands), stats.DistinctBrands(r.samples.Brands))

	return buf.Bytes()
}

func (r *Reporter) writeValue(buf *bytes.Buffer, label, value string) {
	fmt.Fprintf(buf, "%s: %s\n", label, value)
}

func (r *Reporter) writeCount(buf *bytes.Buffer, label string, value int) {
	fmt.Fprintf(buf, "%s: %d\n", label, value)
}

func (r *Reporter) writeTable(buf *bytes.Buffer, label string, table map[string]int) {
	fmt.Fprintf(buf, "%s:\n", label)
	entries := SortedTable(table)
	if len(entries) == 0 {
		buf.WriteString("  (none)\n")
	}
	for _, entry := range entries {
		fmt.Fprintf(buf, "  %s: %d\n", entry.Value, entry.Count)
	}
	buf.WriteString("\n")
}

func (r *Reporter) writeList(buf *bytes.Buffer, label string, values []string) {
	fmt.Fprintf(buf, "%s:\n", label)
	if len(values) == 0 {
		buf.WriteString("  (none)\n")
	}
	for _, value := range values {
		fmt.Fprintf(buf, "  %s\n", value)
	}
	buf.WriteString("\n")
}
