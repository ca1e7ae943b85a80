package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

type ID uint64

func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Kind categorizes user-data records. The zero value is used for records
// that carry no category, such as feed articles.
type Kind int

const (
	KindUnspecified Kind = iota
	KindInteraction
	KindFact
	KindExclude
	KindInclude
)

var kindNames = map[Kind]string{
	KindUnspecified: "",
	KindInteraction: "Interaction",
	KindFact:        "Fact",
	KindExclude:     "Exclude",
	KindInclude:     "Include",
}

func (k Kind) String() string {
	return kindNames[k]
}

// ParseKind converts a stored or user-supplied name into a Kind.
// Matching is case-insensitive. The empty string maps to KindUnspecified.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return KindUnspecified, fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// SourceItem is an item produced by a feed source. It is never persisted directly.
type SourceItem struct {
	Title       string
	Description string
	Link        string
	Tags        []string
}

// Record is the unit persisted in a vector store collection.
type Record struct {
	Key         ID
	Text        string    // Primary text; the embedded field for feed items
	Description string    // Auxiliary text
	Link        string    // Source link, the natural external identity
	Kind        Kind      // Category for user-data records
	Tags        []string
	Timestamp   time.Time // Creation time; drives recency ordering
	Vector      []float32
}

// QueryRecord is one user interaction. It is stored in the queries
// collection as a Record and never modified afterwards.
type QueryRecord struct {
	Key       ID
	Query     string
	Summary   string
	Timestamp time.Time
	Vector    []float32
}

// ToRecord maps the query record onto the generic Record layout.
func (q *QueryRecord) ToRecord() *Record {
	return &Record{
		Key:         q.Key,
		Text:        q.Query,
		Description: q.Summary,
		Kind:        KindInteraction,
		Timestamp:   q.Timestamp,
		Vector:      q.Vector,
	}
}

// QueryRecordFromRecord is the inverse of QueryRecord.ToRecord.
func QueryRecordFromRecord(r *Record) *QueryRecord {
	return &QueryRecord{
		Key:       r.Key,
		Query:     r.Text,
		Summary:   r.Description,
		Timestamp: r.Timestamp,
		Vector:    r.Vector,
	}
}

type SearchResult struct {
	Record *Record
	Score  float32
}
