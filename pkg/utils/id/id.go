// Package id generates request identifiers.
//
// Identifiers are ULIDs: 26 characters, lexicographically sortable by creation time.
//
//	rid := id.NewULID() // e.g., "01ARZ3NDEKTSV4RRFFQ69G5FAV"
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator defines the interface for ID generators.
type Generator interface {
	// Generate creates a new unique ID.
	Generate() string
}

// ULIDGenerator 使用 ULID 算法生成时间可排序的唯一 ID。
// 同一毫秒内生成的 ID 通过单调熵源保持有序。
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// ULIDOption is a functional option for ULIDGenerator.
type ULIDOption func(*ULIDGenerator)

// WithEntropy sets the random source. It is wrapped in a monotonic reader.
func WithEntropy(r io.Reader) ULIDOption {
	return func(g *ULIDGenerator) {
		g.entropy = ulid.Monotonic(r, 0)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ULIDOption {
	return func(g *ULIDGenerator) {
		g.now = now
	}
}

// NewULIDGenerator creates a new ULID generator.
func NewULIDGenerator(opts ...ULIDOption) *ULIDGenerator {
	g := &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate implements Generator.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

var (
	defaultULID Generator
	initOnce    sync.Once
)

// NewULID generates a new ULID string with the default generator.
func NewULID() string {
	initOnce.Do(func() {
		defaultULID = NewULIDGenerator()
	})
	return defaultULID.Generate()
}

// ParseULID parses a ULID string strictly.
func ParseULID(s string) (ulid.ULID, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return ulid.ULID{}, ErrInvalidULID
	}
	return u, nil
}

// IsValidULID checks if a string is a valid ULID.
func IsValidULID(s string) bool {
	_, err := ParseULID(s)
	return err == nil
}
