package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// entryMagic prefixes every persisted entry; the digit is the frame version.
var entryMagic = []byte("DCE1")

const entryHeaderLen = 4 + 8

// frameEntry wraps an encoded result with a magic prefix and an xxhash64
// checksum of the payload, so a truncated or partially written entry is
// detected on read.
func frameEntry(payload []byte) []byte {
	out := make([]byte, entryHeaderLen+len(payload))
	copy(out, entryMagic)
	binary.BigEndian.PutUint64(out[4:entryHeaderLen], xxhash.Sum64(payload))
	copy(out[entryHeaderLen:], payload)
	return out
}

// unframeEntry validates data and returns its payload.
func unframeEntry(data []byte) ([]byte, error) {
	if len(data) < entryHeaderLen {
		return nil, fmt.Errorf("%w: short entry (%d bytes)", ErrCorruptEntry, len(data))
	}
	if !bytes.Equal(data[:4], entryMagic) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptEntry)
	}
	payload := data[entryHeaderLen:]
	if binary.BigEndian.Uint64(data[4:entryHeaderLen]) != xxhash.Sum64(payload) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptEntry)
	}
	return payload, nil
}
