package hashtable

import (
	"encoding/binary"
	"hash/maphash"
)

// HashUint64 hashes a uint64 key, the shape spec.md's scenario tests use.
func HashUint64(seed maphash.Seed, key uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	var h maphash.Hash
	h.SetSeed(seed)
	h.Write(buf[:])
	return h.Sum64()
}

// HashString hashes a string key.
func HashString(seed maphash.Seed, key string) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.WriteString(key)
	return h.Sum64()
}

// HashBytes hashes a []byte key, mirroring the teacher's hashKey-over-raw-
// bytes convention in src/storage/indexes/hash/hash.go.
func HashBytes(seed maphash.Seed, key []byte) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.Write(key)
	return h.Sum64()
}
