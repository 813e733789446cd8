package eventlog

import (
	"encoding/binary"
	"hash/crc32"
	"time"
)

// Record encoding: varint headerLen | header | payload | crc32c(header|payload)
//
// Headers begin with an 8-byte big-endian write timestamp (ms); anything
// after that is opaque to the log.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// HeaderNow returns a minimal header carrying only the current timestamp.
func HeaderNow() []byte { return HeaderAt(time.Now().UnixMilli()) }

// HeaderAt returns a minimal header carrying the given timestamp (ms).
func HeaderAt(ms int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(ms))
	return b[:]
}

// HeaderTimestamp extracts the write timestamp from a header.
func HeaderTimestamp(header []byte) (int64, bool) {
	if len(header) < 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(header[:8])), true
}

// EncodeRecord serializes a header/payload pair with a trailing checksum.
func EncodeRecord(header, payload []byte) []byte {
	out := make([]byte, 0, 10+len(header)+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

// Decoded is the result of DecodeRecord.
type Decoded struct {
	Header  []byte
	Payload []byte
}

// DecodeRecord parses and checksums an encoded record. Returns false on any
// corruption.
func DecodeRecord(b []byte) (Decoded, bool) {
	if len(b) < 1+4 {
		return Decoded{}, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 {
		return Decoded{}, false
	}
	if n+int(hlen)+4 > len(b) {
		return Decoded{}, false
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return Decoded{}, false
	}
	return Decoded{
		Header:  append([]byte(nil), header...),
		Payload: append([]byte(nil), payload...),
	}, true
}
