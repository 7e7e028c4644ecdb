package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/revec/core"
	"github.com/poiesic/revec/storage"
)

// Key prefixes for different data types
const (
	collectionPrefix = "col"
	pointPrefix      = "pt"
)

// Point id tags. Numeric ids sort before string ids.
const (
	idTagNumeric byte = 0x00
	idTagString  byte = 0x01
)

// makeCollectionKey generates the key holding a collection's schema.
// Format: col:name
func makeCollectionKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", collectionPrefix, name))
}

// makePointPrefix generates the prefix shared by every point in a collection.
// Collection names cannot contain ':' so the prefix is unambiguous.
// Format: pt:name:
func makePointPrefix(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", pointPrefix, name))
}

// makePointKey generates a key for a point.
// Format: pt:name:<tag><id>
func makePointKey(name string, id core.PointID) []byte {
	prefix := makePointPrefix(name)
	if id.IsNumeric() {
		buf := make([]byte, len(prefix)+1+8)
		offset := copy(buf, prefix)
		buf[offset] = idTagNumeric
		// Write in BigEndian order so lexicographic sort works correctly
		binary.BigEndian.PutUint64(buf[offset+1:], id.Num())
		return buf
	}
	s := id.Str()
	buf := make([]byte, len(prefix)+1+len(s))
	offset := copy(buf, prefix)
	buf[offset] = idTagString
	copy(buf[offset+1:], s)
	return buf
}

// parsePointKey recovers the point id from a key produced by makePointKey.
func parsePointKey(prefix, key []byte) (core.PointID, error) {
	if len(key) <= len(prefix) {
		return core.PointID{}, fmt.Errorf("%w: point key too short", storage.ErrSerializationFailed)
	}
	rest := key[len(prefix):]
	switch rest[0] {
	case idTagNumeric:
		if len(rest) != 9 {
			return core.PointID{}, fmt.Errorf("%w: bad numeric point key", storage.ErrSerializationFailed)
		}
		return core.NumericID(binary.BigEndian.Uint64(rest[1:])), nil
	case idTagString:
		return core.StringID(string(rest[1:])), nil
	default:
		return core.PointID{}, fmt.Errorf("%w: unknown point key tag %#x", storage.ErrSerializationFailed, rest[0])
	}
}
