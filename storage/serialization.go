// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/newsdesk/core"
)

// recordVersion prefixes every encoded record.
const recordVersion uint64 = 1

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// RecordSize returns the encoded length of record.
func RecordSize(record *core.Record) int {
	size := varint.Uint64.Size(recordVersion) +
		varint.Uint64.Size(uint64(record.Key)) +
		ord.String.Size(record.Text) +
		ord.String.Size(record.Description) +
		ord.String.Size(record.Link) +
		varint.Int64.Size(int64(record.Kind)) +
		varint.Uint64.Size(uint64(len(record.Tags))) +
		varint.Int64.Size(record.Timestamp.UnixMicro()) +
		varint.Uint64.Size(uint64(len(record.Vector)))
	for _, tag := range record.Tags {
		size += ord.String.Size(tag)
	}
	for _, f := range record.Vector {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return size
}

// MarshalRecord serializes a Record to bytes.
func MarshalRecord(record *core.Record) []byte {
	buf := make([]byte, RecordSize(record))
	n := varint.Uint64.Marshal(recordVersion, buf)
	n += varint.Uint64.Marshal(uint64(record.Key), buf[n:])
	n += ord.String.Marshal(record.Text, buf[n:])
	n += ord.String.Marshal(record.Description, buf[n:])
	n += ord.String.Marshal(record.Link, buf[n:])
	n += varint.Int64.Marshal(int64(record.Kind), buf[n:])
	n += varint.Uint64.Marshal(uint64(len(record.Tags)), buf[n:])
	for _, tag := range record.Tags {
		n += ord.String.Marshal(tag, buf[n:])
	}
	n += varint.Int64.Marshal(record.Timestamp.UnixMicro(), buf[n:])
	n += varint.Uint64.Marshal(uint64(len(record.Vector)), buf[n:])
	for _, f := range record.Vector {
		n += varint.Uint32.Marshal(math.Float32bits(f), buf[n:])
	}
	return buf[:n]
}

// recordReader tracks the read offset and the first decode error.
type recordReader struct {
	data []byte
	off  int
	err  error
}

func (r *recordReader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.data[r.off:])
	r.off += n
	r.err = err
	return v
}

func (r *recordReader) int64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.data[r.off:])
	r.off += n
	r.err = err
	return v
}

func (r *recordReader) uint32() uint32 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint32.Unmarshal(r.data[r.off:])
	r.off += n
	r.err = err
	return v
}

func (r *recordReader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.data[r.off:])
	r.off += n
	r.err = err
	return v
}

// count reads a length prefix, rejecting values larger than the remaining data.
func (r *recordReader) count() int {
	c := r.uint64()
	if r.err == nil && c > uint64(len(r.data)-r.off) {
		r.err = ErrTruncatedData
		return 0
	}
	return int(c)
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (*core.Record, error) {
	r := &recordReader{data: data}
	if version := r.uint64(); r.err == nil && version != recordVersion {
		return nil, fmt.Errorf("%w: unknown record version %d", ErrSerializationFailed, version)
	}

	record := &core.Record{}
	record.Key = core.ID(r.uint64())
	record.Text = r.string()
	record.Description = r.string()
	record.Link = r.string()
	record.Kind = core.Kind(r.int64())
	if r.err == nil {
		r.err = core.ValidateKind(record.Kind)
	}
	if tags := r.count(); tags > 0 {
		record.Tags = make([]string, tags)
		for i := range record.Tags {
			record.Tags[i] = r.string()
		}
	}
	record.Timestamp = time.UnixMicro(r.int64()).UTC()
	if dims := r.count(); dims > 0 {
		record.Vector = make([]float32, dims)
		for i := range record.Vector {
			record.Vector[i] = math.Float32frombits(r.uint32())
		}
	}

	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, r.err)
	}
	return record, nil
}
