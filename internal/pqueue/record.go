package pqueue

import (
	"encoding/binary"
	"hash/crc32"
)

// Item record: headerLen(4B BE) | header(addedAtMs 8B | expiresAtMs 8B) | payload | crc32c(header|payload)
//
// The header carries the two timestamps that drive expiry and diagnostics;
// everything after it is the opaque payload handed back to callers verbatim.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

const headerLen = 16

func encodeItem(addedAtMs, expiresAtMs int64, payload []byte) []byte {
	var header [headerLen]byte
	binary.BigEndian.PutUint64(header[0:8], uint64(addedAtMs))
	binary.BigEndian.PutUint64(header[8:16], uint64(expiresAtMs))

	out := make([]byte, 0, 4+headerLen+len(payload)+4)
	var hb [4]byte
	binary.BigEndian.PutUint32(hb[:], uint32(headerLen))
	out = append(out, hb[:]...)
	out = append(out, header[:]...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header[:])
	crc = crc32.Update(crc, castagnoli, payload)
	var cb [4]byte
	binary.BigEndian.PutUint32(cb[:], crc)
	out = append(out, cb[:]...)
	return out
}

type decodedItem struct {
	AddedAtMs   int64
	ExpiresAtMs int64
	Payload     []byte
}

func decodeItem(b []byte) (decodedItem, bool) {
	if len(b) < 4+headerLen+4 {
		return decodedItem{}, false
	}
	hlen := binary.BigEndian.Uint32(b[:4])
	if int(hlen) != headerLen || 4+int(hlen)+4 > len(b) {
		return decodedItem{}, false
	}
	headerEnd := 4 + int(hlen)
	header := b[4:headerEnd]
	payload := b[headerEnd : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return decodedItem{}, false
	}

	return decodedItem{
		AddedAtMs:   int64(binary.BigEndian.Uint64(header[0:8])),
		ExpiresAtMs: int64(binary.BigEndian.Uint64(header[8:16])),
		Payload:     append([]byte(nil), payload...),
	}, true
}
