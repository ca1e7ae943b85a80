package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// KeyGenerator assigns keys to new records. One generator is chosen per
// collection when the collection is opened.
type KeyGenerator interface {
	NextKey(record *Record) (ID, error)
}

// KeyStrategy names a KeyGenerator implementation in configuration.
type KeyStrategy string

const (
	KeyStrategySequential KeyStrategy = "sequential"
	KeyStrategyRandom     KeyStrategy = "random"
	KeyStrategyHash       KeyStrategy = "hash"
)

// ParseKeyStrategy converts a configuration value into a KeyStrategy.
func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch KeyStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case KeyStrategySequential:
		return KeyStrategySequential, nil
	case KeyStrategyRandom:
		return KeyStrategyRandom, nil
	case KeyStrategyHash, "":
		return KeyStrategyHash, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKeyStrategy, s)
}

// Sequence is a source of monotonically increasing integers.
// *badger.Sequence satisfies it.
type Sequence interface {
	Next() (uint64, error)
}

// NewKeyGenerator builds the generator for strategy. seq backs the sequential
// strategy and may be nil, in which case an in-process counter is used.
func NewKeyGenerator(strategy KeyStrategy, seq Sequence) (KeyGenerator, error) {
	switch strategy {
	case KeyStrategySequential:
		return NewSequentialKeys(seq), nil
	case KeyStrategyRandom:
		return RandomKeys{}, nil
	case KeyStrategyHash:
		return ContentHashKeys{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKeyStrategy, strategy)
}

// SequentialKeys hands out integer keys from a sequence.
type SequentialKeys struct {
	seq     Sequence
	counter atomic.Uint64
}

func NewSequentialKeys(seq Sequence) *SequentialKeys {
	return &SequentialKeys{seq: seq}
}

func (s *SequentialKeys) NextKey(_ *Record) (ID, error) {
	if s.seq == nil {
		return ID(s.counter.Add(1)), nil
	}
	next, err := s.seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if next == 0 {
		next, err = s.seq.Next()
		if err != nil {
			return 0, err
		}
	}
	return ID(next), nil
}

// RandomKeys derives a 64-bit key from a version 4 UUID.
type RandomKeys struct{}

func (RandomKeys) NextKey(_ *Record) (ID, error) {
	for {
		u, err := uuid.NewRandom()
		if err != nil {
			return 0, err
		}
		id := ID(binary.BigEndian.Uint64(u[:8]) ^ binary.BigEndian.Uint64(u[8:]))
		if id != 0 {
			return id, nil
		}
	}
}

// ContentHashKeys derives the key from the record's link, or from its text
// when there is no link. The same link always yields the same key.
type ContentHashKeys struct{}

func (ContentHashKeys) NextKey(record *Record) (ID, error) {
	if record == nil {
		return 0, fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	source := record.Link
	if source == "" {
		source = record.Text
	}
	if source == "" {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyText)
	}
	return KeyForContent(source), nil
}

// KeyForContent returns the content-hash key for s. Zero is reserved for
// "no key", so a zero hash is remapped.
func KeyForContent(s string) ID {
	id := IDFromContent(s)
	if id == 0 {
		id = 1
	}
	return id
}
