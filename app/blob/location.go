package blob

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	SchemeS3   = "s3"
	SchemeGCS  = "gs"
	SchemeFile = "file"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Location identifies an object: a bucket and key for remote stores, an
// absolute path in Key for the local filesystem.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

// ParseLocation accepts s3://bucket/key, gs://bucket/key, file:///path or a
// bare filesystem path.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("location is empty")
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		abs, err := filepath.Abs(raw)
		if err != nil {
			return Location{}, fmt.Errorf("failed to resolve path %s: %w", raw, err)
		}
		return Location{Scheme: SchemeFile, Key: abs}, nil
	}

	switch strings.ToLower(scheme) {
	case SchemeS3, SchemeGCS:
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Location{}, fmt.Errorf("location %s has no bucket", raw)
		}
		return Location{Scheme: strings.ToLower(scheme), Bucket: bucket, Key: key}, nil
	case SchemeFile:
		if rest == "" {
			return Location{}, fmt.Errorf("location %s has no path", raw)
		}
		return Location{Scheme: SchemeFile, Key: filepath.Clean(rest)}, nil
	default:
		return Location{}, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
}

func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return "file://" + l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// Base returns the last element of the key.
func (l Location) Base() string {
	if l.Scheme == SchemeFile {
		return filepath.Base(l.Key)
	}
	return path.Base(l.Key)
}

// ReportLocation resolves where a run's report goes. A destination ending in
// .txt is the report itself; anything else is a prefix the report name is
// appended to. IDs are reduced to [A-Za-z0-9._-] in the generated name.
func ReportLocation(destination, partnerID, distinguishID string) (Location, error) {
	loc, err := ParseLocation(destination)
	if err != nil {
		return Location{}, err
	}

	if strings.HasSuffix(loc.Key, ".txt") {
		return loc, nil
	}

	name := fmt.Sprintf("feed_stats_%s_%s.txt", nameSegment(partnerID), nameSegment(distinguishID))
	if loc.Scheme == SchemeFile {
		loc.Key = filepath.Join(loc.Key, name)
		return loc, nil
	}

	prefix := strings.TrimSuffix(loc.Key, "/")
	if prefix == "" {
		loc.Key = name
	} else {
		loc.Key = prefix + "/" + name
	}
	return loc, nil
}

func nameSegment(s string) string {
	s = unsafeNameChars.ReplaceAllString(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}
