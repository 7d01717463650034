package pqueue

import "encoding/binary"

// Each PersistentQueue owns its own Pebble database, so keys need no
// namespace/queue-name component - only the item's place in the FIFO
// (seq) or its reservation xid.

const (
	prefixItem   = "item/"
	prefixExpiry = "expiry/"
	prefixResv   = "resv/"
	keyLastSeq   = "meta/lastseq"
)

// itemKey returns the key for the item's FIFO slot.
func itemKey(seq uint64) []byte {
	key := make([]byte, len(prefixItem)+8)
	copy(key, prefixItem)
	binary.BigEndian.PutUint64(key[len(prefixItem):], seq)
	return key
}

// expiryKey returns the key for the item's expiry index entry.
func expiryKey(expiresAtMs int64, seq uint64) []byte {
	key := make([]byte, len(prefixExpiry)+8+8)
	copy(key, prefixExpiry)
	binary.BigEndian.PutUint64(key[len(prefixExpiry):], uint64(expiresAtMs))
	binary.BigEndian.PutUint64(key[len(prefixExpiry)+8:], seq)
	return key
}

// resvKey returns the key that records an in-flight reservation, keyed by
// the reservation's 16-byte xid.
func resvKey(xid [16]byte) []byte {
	key := make([]byte, len(prefixResv)+16)
	copy(key, prefixResv)
	copy(key[len(prefixResv):], xid[:])
	return key
}

// itemRange returns the [start, end) bounds covering every item key.
func itemRange() ([]byte, []byte) {
	start := []byte(prefixItem)
	end := make([]byte, len(prefixItem)+8)
	copy(end, prefixItem)
	binary.BigEndian.PutUint64(end[len(prefixItem):], ^uint64(0))
	return start, append(end, 0xFF)
}

// expiryRangeUpTo returns the [start, end) bounds covering every expiry
// index entry whose timestamp is <= maxMs.
func expiryRangeUpTo(maxMs int64) ([]byte, []byte) {
	start := []byte(prefixExpiry)
	end := make([]byte, len(prefixExpiry)+8)
	copy(end, prefixExpiry)
	binary.BigEndian.PutUint64(end[len(prefixExpiry):], uint64(maxMs))
	return start, append(end, 0xFF)
}

func parseSeqFromItemKey(key []byte) (uint64, bool) {
	if len(key) != len(prefixItem)+8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[len(prefixItem):]), true
}

func parseSeqFromExpiryKey(key []byte) (uint64, bool) {
	if len(key) != len(prefixExpiry)+16 {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[len(prefixExpiry)+8:]), true
}
