package feed

import (
	"fmt"
)

const (
	eligibilityMarkerCount = 5
	maxSampleSize          = 1000
)

func DefaultProfile() *Profile {
	return &Profile{
		Name:      "default",
		RecordTag: "product",
		Eligibility: []string{
			"<in_stock>true</in_stock>",
			"<variation_status>AVAILABLE</variation_status>",
			"<visible>true</visible>",
			"<product_status>AVAILABLE</product_status>",
			"<publishing_status>PUBLISHED</publishing_status>",
		},
		Counters: ProfileCounters{
			Gender:       "</gender>",
			Size:         variantMarkers("size"),
			Color:        variantMarkers("color"),
			CurrentPrice: "</price>",
			ListPrice:    "</list_price>",
			URL:          "</url>",
			Image:        "</photo>",
			ExtraImage:   "</extra_image>",
		},
		Fields: ProfileFields{
			Category:     "category",
			Availability: "availability",
			Brand:        "brand",
			URL:          "url",
			Photo:        "photo",
			Name:         "name",
		},
		Samples: ProfileSamples{
			URLs:   10,
			Photos: 10,
			Names:  20,
			Brands: 10,
		},
	}
}

func variantMarkers(key string) []string {
	return []string{
		"</" + key + ">",
		"<variation_key>" + key + "</variation_key>",
		"<sibling_key>" + key + "</sibling_key>",
		"<attribute_key>" + key + "</attribute_key>",
	}
}

func openTag(name string) string {
	return "<" + name + ">"
}

func closeTag(name string) string {
	return "</" + name + ">"
}

func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}

	if p.RecordTag == "" {
		return fmt.Errorf("record tag is required")
	}

	if len(p.Eligibility) != eligibilityMarkerCount {
		return fmt.Errorf("eligibility must list exactly %d markers, got %d", eligibilityMarkerCount, len(p.Eligibility))
	}
	for i, marker := range p.Eligibility {
		if marker == "" {
			return fmt.Errorf("eligibility marker at index %d is empty", i)
		}
	}

	requiredMarkers := map[string]string{
		"gender counter":        p.Counters.Gender,
		"current price counter": p.Counters.CurrentPrice,
		"list price counter":    p.Counters.ListPrice,
		"url counter":           p.Counters.URL,
		"image counter":         p.Counters.Image,
		"extra image counter":   p.Counters.ExtraImage,
		"category field":        p.Fields.Category,
		"availability field":    p.Fields.Availability,
		"brand field":           p.Fields.Brand,
		"url field":             p.Fields.URL,
		"photo field":           p.Fields.Photo,
		"name field":            p.Fields.Name,
	}

	for fieldName, fieldValue := range requiredMarkers {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if len(p.Counters.Size) == 0 || len(p.Counters.Color) == 0 {
		return fmt.Errorf("size and color counters need at least one marker")
	}

	sampleSizes := map[string]int{
		"url samples":   p.Samples.URLs,
		"photo samples": p.Samples.Photos,
		"name samples":  p.Samples.Names,
		"brand samples": p.Samples.Brands,
	}

	for fieldName, fieldValue := range sampleSizes {
		if fieldValue < 0 || fieldValue > maxSampleSize {
			return fmt.Errorf("%s must be between 0 and %d", fieldName, maxSampleSize)
		}
	}

	return nil
}
