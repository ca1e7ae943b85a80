package cosmos

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

// item is the JSON document stored per record.
type item struct {
	ID          string    `json:"id"`
	Collection  string    `json:"collection"`
	Text        string    `json:"text"`
	Description string    `json:"description,omitempty"`
	Link        string    `json:"link,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Timestamp   int64     `json:"timestamp"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Score       *float32  `json:"score,omitempty"`
}

func toItem(collection string, record *core.Record) item {
	return item{
		ID:          strconv.FormatUint(uint64(record.Key), 10),
		Collection:  collection,
		Text:        record.Text,
		Description: record.Description,
		Link:        record.Link,
		Kind:        record.Kind.String(),
		Tags:        record.Tags,
		Timestamp:   record.Timestamp.UnixMicro(),
		Embedding:   record.Vector,
	}
}

func (it item) record() (*core.Record, error) {
	key, err := strconv.ParseUint(it.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: item id %q: %w", storage.ErrSerializationFailed, it.ID, err)
	}
	kind, err := core.ParseKind(it.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return &core.Record{
		Key:         core.ID(key),
		Text:        it.Text,
		Description: it.Description,
		Link:        it.Link,
		Kind:        kind,
		Tags:        it.Tags,
		Timestamp:   time.UnixMicro(it.Timestamp).UTC(),
		Vector:      it.Embedding,
	}, nil
}

// projection lists the document fields returned by queries.
func projection(includeVectors bool) string {
	fields := "c.id, c.collection, c.text, c.description, c.link, c.kind, c.tags, c.timestamp"
	if includeVectors {
		fields += ", c.embedding"
	}
	return fields
}

// whereClause renders a storage filter as Cosmos SQL conditions, appending
// the bound values to params. Unknown fields yield ok=false.
func whereClause(filter storage.Filter, params []azcosmos.QueryParameter) (string, []azcosmos.QueryParameter, bool) {
	if len(filter) == 0 {
		return "", params, true
	}
	conds := make([]string, 0, len(filter))
	for i, c := range filter {
		name := fmt.Sprintf("@f%d", i)
		value := c.Value
		switch c.Field {
		case storage.FieldLink:
			conds = append(conds, "c.link = "+name)
		case storage.FieldKind:
			if kind, err := core.ParseKind(value); err == nil {
				value = kind.String()
			}
			conds = append(conds, "c.kind = "+name)
		case storage.FieldTag:
			conds = append(conds, fmt.Sprintf("ARRAY_CONTAINS(c.tags, %s)", name))
		default:
			return "", params, false
		}
		params = append(params, azcosmos.QueryParameter{Name: name, Value: value})
	}
	return " WHERE " + strings.Join(conds, " AND "), params, true
}

// searchQuery builds the top-k similarity query for opts.
func searchQuery(vector []float32, opts storage.SearchOptions) (string, []azcosmos.QueryParameter, bool) {
	params := []azcosmos.QueryParameter{
		{Name: "@k", Value: opts.Limit()},
		{Name: "@v", Value: vector},
	}
	where, params, ok := whereClause(opts.Filter, params)
	if !ok {
		return "", nil, false
	}
	if where == "" {
		where = " WHERE IS_DEFINED(c.embedding)"
	} else {
		where += " AND IS_DEFINED(c.embedding)"
	}
	query := "SELECT TOP @k " + projection(opts.IncludeVectors) +
		", VectorDistance(c.embedding, @v) AS score FROM c" + where +
		" ORDER BY VectorDistance(c.embedding, @v)"
	return query, params, true
}
