package eventlog

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
)

// Token encodes a position in the partition as seq (8 bytes big-endian).
type Token [8]byte

// TokenFromSeq builds a Token for the given sequence.
func TokenFromSeq(seq uint64) Token {
	var t Token
	binary.BigEndian.PutUint64(t[:], seq)
	return t
}

// Seq returns the sequence the token points at.
func (t Token) Seq() uint64 { return binary.BigEndian.Uint64(t[:]) }

// ReadOptions controls a forward scan over one partition.
type ReadOptions struct {
	// Start is inclusive. A zero token begins at the first entry.
	Start Token
	// Limit caps returned items; 0 means no cap.
	Limit int
}

// Item is a decoded log entry.
type Item struct {
	Seq     uint64
	Header  []byte
	Payload []byte
}

// Read returns up to Limit items starting at Start (inclusive), plus the
// token of the last returned item. Entries that fail checksum are skipped.
// A store-level iterator failure is returned so callers can tell a broken
// store apart from an idle partition.
func (l *Log) Read(opts ReadOptions) ([]Item, Token, error) {
	low := KeyLogEntry(l.topic, l.part, 0)
	hi := KeyLogEntry(l.topic, l.part, ^uint64(0))

	items := make([]Item, 0, max(1, opts.Limit))
	var last Token

	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return items, last, err
	}
	defer iter.Close()

	startSeq := opts.Start.Seq()
	var ok bool
	if startSeq == 0 {
		ok = iter.First()
	} else {
		ok = iter.SeekGE(KeyLogEntry(l.topic, l.part, startSeq))
	}
	for ; ok && (opts.Limit == 0 || len(items) < opts.Limit); ok = iter.Next() {
		seq := seqFromEntryKey(iter.Key())
		dec, valid := DecodeRecord(iter.Value())
		if !valid {
			continue
		}
		items = append(items, Item{Seq: seq, Header: dec.Header, Payload: dec.Payload})
		last = TokenFromSeq(seq)
	}
	return items, last, nil
}

// Last returns the most recent entry in the partition, or ok=false when the
// partition is empty (or fully trimmed).
func (l *Log) Last() (Item, bool) {
	low := KeyLogEntry(l.topic, l.part, 0)
	hi := KeyLogEntry(l.topic, l.part, ^uint64(0))

	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return Item{}, false
	}
	defer iter.Close()

	for ok := iter.Last(); ok; ok = iter.Prev() {
		dec, valid := DecodeRecord(iter.Value())
		if !valid {
			continue
		}
		return Item{Seq: seqFromEntryKey(iter.Key()), Header: dec.Header, Payload: dec.Payload}, true
	}
	return Item{}, false
}

// FirstSeq returns the lowest surviving sequence, or 0 when empty.
func (l *Log) FirstSeq() uint64 {
	low := KeyLogEntry(l.topic, l.part, 0)
	hi := KeyLogEntry(l.topic, l.part, ^uint64(0))

	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0
	}
	defer iter.Close()
	if !iter.First() {
		return 0
	}
	return seqFromEntryKey(iter.Key())
}

func seqFromEntryKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
