package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/newsdesk/core"
)

// Key prefixes for different data types
const (
	recordPrefix     = "rec"
	recordDatePrefix = "recd"
	collectionPrefix = "coll"
	keySeqPrefix     = "keyseq"
)

// signBit flips signed timestamps so negative values sort before positive
// ones in unsigned big-endian order.
const signBit = 1 << 63

// makeRecordPrefix returns the prefix shared by all records in collection.
// Format: prefix:collection:
func makeRecordPrefix(collection string) []byte {
	return []byte(recordPrefix + ":" + collection + ":")
}

// makeRecordKey generates a key for a record by collection and key.
// Format: prefix:collection:key
func makeRecordKey(collection string, id core.ID) []byte {
	prefix := makeRecordPrefix(collection)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so scans visit keys in numeric order
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeDatePrefix returns the prefix of the date index for collection.
func makeDatePrefix(collection string) []byte {
	return []byte(recordDatePrefix + ":" + collection + ":")
}

// makeDateKey generates a composite key for the date index.
// Format: prefix:collection:timestamp:key
func makeDateKey(collection string, timestamp time.Time, id core.ID) []byte {
	prefix := makeDatePrefix(collection)
	buf := make([]byte, len(prefix)+16) // 8 bytes for timestamp + 8 bytes for key
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro())^signBit)
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeDateSeekKey returns a key past every date index entry of collection,
// used as the starting point of reverse iteration.
func makeDateSeekKey(collection string) []byte {
	prefix := makeDatePrefix(collection)
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	for i := offset; i < len(buf); i++ {
		buf[i] = 0xff
	}
	return buf
}

// makeCollectionKey marks a collection as created.
func makeCollectionKey(collection string) []byte {
	return []byte(collectionPrefix + ":" + collection)
}

// makeKeySequenceName names the key sequence for collection.
func makeKeySequenceName(collection string) string {
	return keySeqPrefix + ":" + collection
}
