package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different data types
const (
	vectorRecordPrefix = "vecrec"
	vectorIDPrefix     = "vecid"
	vectorDimPrefix    = "vecdim"
	vectorSeqPrefix    = "vecseq"
	docRecordPrefix    = "docrec"
	docIDPrefix        = "docid"
	docSeqName         = "docseq"
)

// makeVectorRecordKey generates a record key for a vector store entry.
// Format: prefix:store:seq, with the sequence number in BigEndian order so
// lexicographic iteration follows insertion order.
func makeVectorRecordKey(store string, seq uint64) []byte {
	prefix := []byte(vectorRecordPrefix + ":" + store + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeVectorRecordPrefix generates the iteration prefix for one vector store.
func makeVectorRecordPrefix(store string) []byte {
	return []byte(vectorRecordPrefix + ":" + store + ":")
}

// makeVectorIDKey generates the identifier-index key for a vector store entry.
func makeVectorIDKey(store, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", vectorIDPrefix, store, id))
}

// makeVectorDimKey generates the key holding a vector store's established
// embedding dimensionality.
func makeVectorDimKey(store string) []byte {
	return []byte(fmt.Sprintf("%s:%s", vectorDimPrefix, store))
}

// vectorSeqName returns the sequence name for a vector store.
func vectorSeqName(store string) string {
	return fmt.Sprintf("%s:%s", vectorSeqPrefix, store)
}

// makeDocRecordKey generates a record key for a document store entry.
// Format: prefix:seq in BigEndian order, preserving insertion order.
func makeDocRecordKey(seq uint64) []byte {
	prefix := []byte(docRecordPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeDocRecordPrefix generates the iteration prefix for the document store.
func makeDocRecordPrefix() []byte {
	return []byte(docRecordPrefix + ":")
}

// makeDocIDKey generates the identifier-index key for a document store entry.
func makeDocIDKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", docIDPrefix, id))
}

// marshalSeq encodes a sequence number for storage in an index value.
func marshalSeq(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

// unmarshalSeq decodes a sequence number from an index value.
func unmarshalSeq(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid sequence value length %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
