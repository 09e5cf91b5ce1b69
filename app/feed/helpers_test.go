package feed

import (
	"fmt"
	"strings"
)

var eligibleMarkers = []string{
	"<in_stock>true</in_stock>",
	"<variation_status>AVAILABLE</variation_status>",
	"<visible>true</visible>",
	"<product_status>AVAILABLE</product_status>",
	"<publishing_status>PUBLISHED</publishing_status>",
}

// product builds one record with all eligibility markers plus the given body lines.
func product(lines ...string) string {
	var b strings.Builder
	b.WriteString("<product>\n")
	for _, marker := range eligibleMarkers {
		b.WriteString("  " + marker + "\n")
	}
	for _, line := range lines {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("</product>\n")
	return b.String()
}

// productWithout builds an otherwise eligible record lacking one marker.
func productWithout(missing string, lines ...string) string {
	return strings.Replace(product(lines...), "  "+missing+"\n", "", 1)
}

func document(records ...string) string {
	return "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<products>\n" + strings.Join(records, "") + "</products>\n"
}

func numbered(format string, n int) []string {
	values := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		values = append(values, fmt.Sprintf(format, i))
	}
	return values
}
