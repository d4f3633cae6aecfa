// Package uniq hands out length-bounded identifiers that are unique within
// one catalog build.
//
// Every identifier goes through the same steps: the seed is truncated with a
// content-hash suffix when it is too long, and on collision a numeric suffix
// ("-2", "-3", ...) is appended, truncating the seed again so the result
// still fits. Category handles, product handles and SKUs all share these
// semantics.
package uniq

import (
	"strconv"
	"strings"

	"github.com/raine/catalog-feed-import/internal/textutil"
)

const (
	// MaxHandleLength bounds category and product handles.
	MaxHandleLength = 100
	// MaxSKULength bounds variant SKUs.
	MaxSKULength = 64

	fallbackSeed = "item"
)

// Set records identifiers claimed during a build.
// A Set is not safe for concurrent use.
type Set struct {
	maxLen  int
	upper   bool
	claimed map[string]struct{}
}

// NewSet creates a set whose identifiers are at most maxLen bytes long.
func NewSet(maxLen int) *Set {
	return &Set{
		maxLen:  maxLen,
		claimed: make(map[string]struct{}),
	}
}

// NewUpperSet creates a set that upper-cases every candidate, hash suffixes
// included.
func NewUpperSet(maxLen int) *Set {
	s := NewSet(maxLen)
	s.upper = true
	return s
}

// Has reports whether v was already claimed.
func (s *Set) Has(v string) bool {
	_, ok := s.claimed[v]
	return ok
}

// Len returns the number of claimed identifiers.
func (s *Set) Len() int {
	return len(s.claimed)
}

// Claim returns the first free identifier derived from seed and marks it as
// taken. The first candidate is the (possibly hash-truncated) seed itself;
// later candidates carry "-2", "-3", ...
func (s *Set) Claim(seed string) string {
	if seed == "" {
		seed = fallbackSeed
	}

	candidate := s.fit(seed, "")
	for n := 2; s.Has(candidate); n++ {
		candidate = s.fit(seed, "-"+strconv.Itoa(n))
	}
	s.claimed[candidate] = struct{}{}
	return candidate
}

// Reserve claims v exactly as given. It returns false, leaving the set
// unchanged, when v is empty or already taken.
func (s *Set) Reserve(v string) bool {
	if v == "" || s.Has(v) {
		return false
	}
	s.claimed[v] = struct{}{}
	return true
}

func (s *Set) fit(seed, suffix string) string {
	candidate := textutil.TruncateWithHash(seed, s.maxLen-len(suffix)) + suffix
	if s.upper {
		candidate = strings.ToUpper(candidate)
	}
	return candidate
}

// Context carries the three uniqueness sets threaded through one build.
// Independent builds must use independent contexts.
type Context struct {
	Handles *Set
	SKUs    *Set
	EANs    *Set
}

// NewContext returns a context with empty sets.
func NewContext() *Context {
	return &Context{
		Handles: NewSet(MaxHandleLength),
		SKUs:    NewSet(MaxSKULength),
		EANs:    NewSet(MaxSKULength),
	}
}

// ClaimHandle slugifies text and claims a unique handle from it, falling
// back to the slug of fallback when text has no usable characters.
func (c *Context) ClaimHandle(text, fallback string) string {
	seed := textutil.Slugify(text)
	if seed == "" {
		seed = textutil.Slugify(fallback)
	}
	return c.Handles.Claim(seed)
}
