package core

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// NowFunc is the clock used to stamp audit fields.
var NowFunc = func() time.Time { return time.Now().UTC() } // mockable

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStrings cleans every string of ss and drops the blank and duplicate ones, preserving order.
func CleanStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ss))
	cleaned := make([]string, 0, len(ss))
	for _, s := range ss {
		s = CleanString(s)
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		cleaned = append(cleaned, s)
	}
	return cleaned
}

// ContainsFold reports whether substr is within any of fields, ignoring case.
// An empty substr matches everything.
func ContainsFold(substr string, fields ...string) bool {
	if substr == "" {
		return true
	}
	substr = strings.ToLower(substr)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), substr) {
			return true
		}
	}
	return false
}

// MatchFilter reports whether value satisfies an equality filter. "" and "all" match everything.
func MatchFilter(filter, value string) bool {
	if filter == "" || strings.EqualFold(filter, "all") {
		return true
	}
	return strings.EqualFold(filter, value)
}

// Sequence generates monotonic identifiers of the form PREFIX + zero-padded number.
// Numbers are never reused, even after the owning records are deleted.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	last   int
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) Prefix() string { return s.prefix }

// Next returns the next identifier of the sequence.
func (s *Sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return fmt.Sprintf("%s%03d", s.prefix, s.last)
}

// Observe makes sure that the sequence will never generate id, nor any lower number.
// Identifiers not belonging to the sequence are ignored.
func (s *Sequence) Observe(id string) {
	if !strings.HasPrefix(id, s.prefix) {
		return
	}
	n, err := strconv.Atoi(id[len(s.prefix):])
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.last {
		s.last = n
	}
}

// Last returns the last generated or observed number.
func (s *Sequence) Last() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Reset sets the last number of the sequence, used when restoring snapshots.
func (s *Sequence) Reset(last int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = last
}
