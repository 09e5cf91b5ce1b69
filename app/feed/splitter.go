package feed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	DefaultMaxRecordBytes = 16 << 20
	splitterChunkSize     = 256 << 10
)

var ErrRecordTooLarge = errors.New("record exceeds maximum size")

// Splitter cuts a feed stream into records delimited by <tag ...> and </tag>.
// Only the current record and one read chunk are held in memory. A document
// with no record marker at all yields a single record holding its first
// maxRecordBytes bytes.
type Splitter struct {
	r     io.Reader
	open  []byte
	close []byte
	max   int
	chunk []byte

	buf  []byte
	pos  int // start of unconsumed data
	scan int // where the pending marker search resumes

	inRecord bool
	seen     bool
	eof      bool
	done     bool

	head    []byte
	headCut bool
}

func NewSplitter(r io.Reader, tag string, maxRecordBytes int) *Splitter {
	if maxRecordBytes <= 0 {
		maxRecordBytes = DefaultMaxRecordBytes
	}
	return &Splitter{
		r:     r,
		open:  []byte("<" + tag),
		close: []byte("</" + tag + ">"),
		max:   maxRecordBytes,
		chunk: make([]byte, splitterChunkSize),
	}
}

// Next returns the next record, or io.EOF once the stream is exhausted.
func (s *Splitter) Next() (Record, error) {
	for !s.done {
		if s.inRecord {
			if end, ok := s.findClose(); ok {
				if end-s.pos > s.max {
					return Record{}, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, end-s.pos)
				}
				rec := Record{Data: bytes.Clone(s.buf[s.pos:end])}
				s.pos, s.scan = end, end
				s.inRecord = false
				return rec, nil
			}
			if len(s.buf)-s.pos > s.max {
				return Record{}, fmt.Errorf("%w: no %s within %d bytes", ErrRecordTooLarge, s.close, s.max)
			}
			if s.eof {
				s.done = true
				return Record{Data: bytes.Clone(s.buf[s.pos:]), Truncated: true}, nil
			}
		} else {
			if start, ok := s.findOpen(); ok {
				s.pos, s.scan = start, start+len(s.open)
				s.inRecord, s.seen = true, true
				s.head = nil
				continue
			}

			// Keep only what could be the start of a split open marker.
			keep := len(s.buf) - len(s.open)
			if s.eof {
				keep = len(s.buf)
			}
			if keep > s.pos {
				if !s.seen {
					s.retain(s.buf[s.pos:keep])
				}
				s.pos = keep
			}
			s.scan = s.pos

			if s.eof {
				s.done = true
				if !s.seen && len(s.head) > 0 {
					return Record{Data: s.head, Truncated: s.headCut}, nil
				}
				break
			}
		}

		if err := s.fill(); err != nil {
			return Record{}, err
		}
	}

	return Record{}, io.EOF
}

func (s *Splitter) findOpen() (int, bool) {
	from := s.scan
	for {
		i := bytes.Index(s.buf[from:], s.open)
		if i < 0 {
			return 0, false
		}
		at := from + i
		next := at + len(s.open)
		if next >= len(s.buf) {
			return 0, false
		}
		if isTagDelim(s.buf[next]) {
			return at, true
		}
		from = at + 1
	}
}

func (s *Splitter) findClose() (int, bool) {
	i := bytes.Index(s.buf[s.scan:], s.close)
	if i < 0 {
		s.scan = max(s.scan, len(s.buf)-len(s.close)+1)
		return 0, false
	}
	return s.scan + i + len(s.close), true
}

func (s *Splitter) retain(b []byte) {
	room := s.max - len(s.head)
	if room <= 0 {
		s.headCut = s.headCut || len(b) > 0
		return
	}
	if len(b) > room {
		b = b[:room]
		s.headCut = true
	}
	s.head = append(s.head, b...)
}

func (s *Splitter) fill() error {
	if s.pos > 0 && s.pos >= len(s.buf)/2 {
		n := copy(s.buf, s.buf[s.pos:])
		s.buf = s.buf[:n]
		s.scan -= s.pos
		s.pos = 0
	}

	n, err := s.r.Read(s.chunk)
	s.buf = append(s.buf, s.chunk[:n]...)
	if errors.Is(err, io.EOF) {
		s.eof = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read feed: %w", err)
	}
	return nil
}

func isTagDelim(b byte) bool {
	switch b {
	case '>', '/', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
