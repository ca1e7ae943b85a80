package qdrant

import (
	"testing"
	"time"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPointFromPayload(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	record := &core.Record{
		Key:         core.KeyForContent("https://example.com/a"),
		Text:        "Kim",
		Description: "Architect working on the biggest projects.",
		Link:        "https://example.com/a",
		Kind:        core.KindFact,
		Tags:        []string{"kim", "architect"},
		Timestamp:   now,
		Vector:      []float32{0.1, 0.2},
	}

	point := toPoint(record)
	assert.Equal(t, uint64(record.Key), point.GetId().GetNum())
	assert.Equal(t, "Fact", point.GetPayload()[fieldKind].GetStringValue())
	assert.Equal(t, now.UnixMicro(), point.GetPayload()[fieldTimestamp].GetIntegerValue())

	decoded, err := fromPayload(point.GetId(), point.GetPayload(), record.Vector)
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
}

func TestFromPayload_Missing(t *testing.T) {
	rec, err := fromPayload(&pb.PointId{PointIdOptions: &pb.PointId_Num{Num: 3}}, map[string]*pb.Value{}, nil)
	require.NoError(t, err)
	assert.Equal(t, core.ID(3), rec.Key)
	assert.Equal(t, core.KindUnspecified, rec.Kind)
	assert.Empty(t, rec.Tags)
}

func TestFromPayload_UnknownKind(t *testing.T) {
	payload := map[string]*pb.Value{fieldKind: stringValue("Rumour")}
	_, err := fromPayload(pointID(4), payload, nil)
	assert.ErrorIs(t, err, core.ErrInvalidKind)
	assert.ErrorIs(t, err, storage.ErrSerializationFailed)
}

func TestToFilter(t *testing.T) {
	f, ok := toFilter(nil)
	assert.True(t, ok)
	assert.Nil(t, f)

	f, ok = toFilter(storage.Eq(storage.FieldKind, "fact").And(storage.FieldTag, "kim"))
	require.True(t, ok)
	require.Len(t, f.GetMust(), 2)

	kind := f.GetMust()[0].GetField()
	assert.Equal(t, fieldKind, kind.GetKey())
	assert.Equal(t, "Fact", kind.GetMatch().GetKeyword())

	tag := f.GetMust()[1].GetField()
	assert.Equal(t, fieldTags, tag.GetKey())
	assert.Equal(t, "kim", tag.GetMatch().GetKeyword())

	_, ok = toFilter(storage.Eq("color", "blue"))
	assert.False(t, ok)
}

func TestNewStore_RequiresCollection(t *testing.T) {
	client, err := Connect("localhost:6334", "")
	require.NoError(t, err)
	defer client.Close()

	_, err = NewStore(client, "", 0)
	assert.ErrorIs(t, err, storage.ErrCollectionRequired)

	store, err := NewStore(client, "news_articles", 1536)
	require.NoError(t, err)
	assert.Equal(t, "news_articles", store.Collection())
}
