package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/davidpenaloza/mvp-farmacias-v2/core"
)

const (
	pharmacyRecordPrefix   = "phrec"
	pharmacyLocalityPrefix = "phcom"
)

// makePharmacyKey generates a key for a pharmacy record by ID.
func makePharmacyKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", pharmacyRecordPrefix, id))
}

// makeLocalityKey generates a composite key for the locality index.
// Format: prefix:localityKey:id
func makeLocalityKey(localityKey string, id core.ID) []byte {
	prefix := pharmacyLocalityPrefix + ":" + localityKey + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialLocalityKey generates the iteration prefix for a locality.
func makePartialLocalityKey(localityKey string) []byte {
	return []byte(pharmacyLocalityPrefix + ":" + localityKey + ":")
}

// idFromLocalityKey extracts the record ID from a locality index key.
func idFromLocalityKey(key []byte) core.ID {
	if len(key) < 8 {
		return 0
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}
