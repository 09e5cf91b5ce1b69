package feed

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	CompletionMarker = "Upload completed:"
	SuccessMarker    = "Analysis finished successfully at:"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// RunLog is the operational log of one analysis run. Everything written to it
// also goes to the console writer, if one is given.
type RunLog struct {
	Path   string
	Logger *slog.Logger
	file   *os.File
}

func OpenRunLog(dir string, job Job, now time.Time, console io.Writer, level slog.Level) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory %s: %w", dir, err)
	}

	name := fmt.Sprintf("analyze_feed_partner_%s_%s_%d.log",
		safeName(job.PartnerID), safeName(job.DistinguishID), now.Unix())
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	var w io.Writer = f
	if console != nil {
		w = io.MultiWriter(console, f)
	}

	return &RunLog{
		Path:   path,
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
		file:   f,
	}, nil
}

func (l *RunLog) Close() error {
	return l.file.Close()
}

// FindCompletion returns the destination named by the first completion line.
// The line is either a slog text record, whose quoted msg may hold spaces, or
// the bare marker followed by the destination.
func FindCompletion(logText string) (string, bool) {
	for _, line := range strings.Split(logText, "\n") {
		i := strings.Index(line, CompletionMarker)
		if i < 0 {
			continue
		}
		if destination, ok := quotedCompletion(line); ok {
			return destination, true
		}
		if destination := strings.TrimSpace(line[i+len(CompletionMarker):]); destination != "" {
			return destination, true
		}
	}
	return "", false
}

func quotedCompletion(line string) (string, bool) {
	start := strings.Index(line, `msg="`)
	if start < 0 {
		return "", false
	}
	quoted, err := strconv.QuotedPrefix(line[start+len("msg="):])
	if err != nil {
		return "", false
	}
	msg, err := strconv.Unquote(quoted)
	if err != nil {
		return "", false
	}
	destination, ok := strings.CutPrefix(msg, CompletionMarker)
	if !ok {
		return "", false
	}
	destination = strings.TrimSpace(destination)
	return destination, destination != ""
}

func Succeeded(logText string) bool {
	return strings.Contains(logText, SuccessMarker)
}

func safeName(s string) string {
	s = unsafeNameChars.ReplaceAllString(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}
