package qdrant

import (
	"fmt"
	"time"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
	pb "github.com/qdrant/go-client/qdrant"
)

// Payload field names.
const (
	fieldText        = "text"
	fieldDescription = "description"
	fieldLink        = "link"
	fieldKind        = "kind"
	fieldTags        = "tags"
	fieldTimestamp   = "timestamp"
)

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func integerValue(i int64) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: i}}
}

func listValue(items []string) *pb.Value {
	values := make([]*pb.Value, len(items))
	for i, item := range items {
		values[i] = stringValue(item)
	}
	return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
}

func pointID(key core.ID) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(key)}}
}

// toPoint converts a record into a Qdrant point. The kind is stored by name
// so payload filters can match it as a keyword.
func toPoint(record *core.Record) *pb.PointStruct {
	payload := map[string]*pb.Value{
		fieldText:        stringValue(record.Text),
		fieldDescription: stringValue(record.Description),
		fieldLink:        stringValue(record.Link),
		fieldKind:        stringValue(record.Kind.String()),
		fieldTags:        listValue(record.Tags),
		fieldTimestamp:   integerValue(record.Timestamp.UnixMicro()),
	}
	return &pb.PointStruct{
		Id:      pointID(record.Key),
		Payload: payload,
		Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: record.Vector}}},
	}
}

// fromPayload rebuilds a record from a point's id, payload and vector.
func fromPayload(id *pb.PointId, payload map[string]*pb.Value, vector []float32) (*core.Record, error) {
	kind, err := core.ParseKind(payload[fieldKind].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: point %d: %w", storage.ErrSerializationFailed, id.GetNum(), err)
	}
	record := &core.Record{
		Key:         core.ID(id.GetNum()),
		Text:        payload[fieldText].GetStringValue(),
		Description: payload[fieldDescription].GetStringValue(),
		Link:        payload[fieldLink].GetStringValue(),
		Kind:        kind,
		Timestamp:   time.UnixMicro(payload[fieldTimestamp].GetIntegerValue()).UTC(),
		Vector:      vector,
	}
	if tags := payload[fieldTags].GetListValue().GetValues(); len(tags) > 0 {
		record.Tags = make([]string, len(tags))
		for i, t := range tags {
			record.Tags[i] = t.GetStringValue()
		}
	}
	return record, nil
}

// payloadField maps a filter field onto its payload key.
func payloadField(field string) (string, bool) {
	switch field {
	case storage.FieldLink:
		return fieldLink, true
	case storage.FieldKind:
		return fieldKind, true
	case storage.FieldTag:
		return fieldTags, true
	}
	return "", false
}

// toFilter converts a storage filter into Qdrant must-conditions.
// Returns ok=false when a condition names an unknown field, in which case
// nothing can match.
func toFilter(filter storage.Filter) (*pb.Filter, bool) {
	if len(filter) == 0 {
		return nil, true
	}
	must := make([]*pb.Condition, 0, len(filter))
	for _, c := range filter {
		key, ok := payloadField(c.Field)
		if !ok {
			return nil, false
		}
		value := c.Value
		if c.Field == storage.FieldKind {
			// Kinds are stored by canonical name
			if kind, err := core.ParseKind(value); err == nil {
				value = kind.String()
			}
		}
		must = append(must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key:   key,
					Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
				},
			},
		})
	}
	return &pb.Filter{Must: must}, true
}
