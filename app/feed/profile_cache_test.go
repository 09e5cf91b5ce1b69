package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProfileCacheLoadOverride(t *testing.T) {
	tempDir := t.TempDir()

	content := `
record_tag: item
counters:
  gender: "</sex>"
samples:
  names: 5
`
	if err := os.WriteFile(filepath.Join(tempDir, "acme.yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	profileCache := NewProfileCache(tempDir)
	if err := profileCache.Run(); err != nil {
		t.Fatal(err)
	}

	if profileCache.GetProfileCount() != 1 {
		t.Errorf("Expected 1 profile, got %d", profileCache.GetProfileCount())
	}

	profile, err := profileCache.Lookup("acme")
	if err != nil {
		t.Fatal(err)
	}

	if profile.Name != "acme" {
		t.Errorf("Expected name 'acme', got '%s'", profile.Name)
	}
	if profile.RecordTag != "item" {
		t.Errorf("Expected record tag 'item', got '%s'", profile.RecordTag)
	}
	if profile.Counters.Gender != "</sex>" {
		t.Errorf("Expected gender marker '</sex>', got '%s'", profile.Counters.Gender)
	}
	if profile.Samples.Names != 5 {
		t.Errorf("Expected 5 name samples, got %d", profile.Samples.Names)
	}

	// Sections the file does not mention keep their defaults.
	if profile.Counters.ListPrice != "</list_price>" {
		t.Errorf("Expected default list price marker, got '%s'", profile.Counters.ListPrice)
	}
	if len(profile.Eligibility) != 5 {
		t.Errorf("Expected default eligibility markers, got %v", profile.Eligibility)
	}
	if profile.Samples.URLs != 10 {
		t.Errorf("Expected default url samples 10, got %d", profile.Samples.URLs)
	}
}

func TestProfileCacheLookupDefault(t *testing.T) {
	profileCache := NewProfileCache(t.TempDir())

	profile, err := profileCache.Lookup("unknown")
	if err != nil {
		t.Fatal(err)
	}

	if profile.Name != "default" {
		t.Errorf("Expected default profile, got '%s'", profile.Name)
	}
	if profile.RecordTag != "product" {
		t.Errorf("Expected record tag 'product', got '%s'", profile.RecordTag)
	}
}

func TestProfileCacheMissingDirectory(t *testing.T) {
	profileCache := NewProfileCache(filepath.Join(t.TempDir(), "missing"))

	if err := profileCache.Run(); err != nil {
		t.Errorf("Missing directory should not be an error: %v", err)
	}
	if profileCache.GetProfileCount() != 0 {
		t.Errorf("Expected 0 profiles, got %d", profileCache.GetProfileCount())
	}
}

func TestProfileCacheInvalidEligibility(t *testing.T) {
	tempDir := t.TempDir()

	content := `
eligibility:
  - "<in_stock>true</in_stock>"
  - "<visible>true</visible>"
`
	if err := os.WriteFile(filepath.Join(tempDir, "short.yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewProfileCache(tempDir).LoadProfile("short")
	if err == nil {
		t.Fatal("Expected validation error for two eligibility markers")
	}
	if !strings.Contains(err.Error(), "exactly 5") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestProfileCacheInvalidYAML(t *testing.T) {
	tempDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tempDir, "bad.yml"), []byte("record_tag: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := NewProfileCache(tempDir).Run(); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestProfileValidateSampleRange(t *testing.T) {
	profile := DefaultProfile()
	profile.Samples.Photos = -1

	if err := profile.Validate(); err == nil {
		t.Error("Expected error for negative sample size")
	}

	profile = DefaultProfile()
	if err := profile.Validate(); err != nil {
		t.Errorf("Default profile should be valid: %v", err)
	}
}
