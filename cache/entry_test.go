package cache

import (
	"bytes"
	"errors"
	"testing"
)

func TestEntryFraming_RoundTrip(t *testing.T) {
	for _, payload := range [][]byte{{}, []byte("x"), bytes.Repeat([]byte("abc"), 1000)} {
		framed := frameEntry(payload)
		if !bytes.HasPrefix(framed, []byte("DCE1")) {
			t.Fatalf("missing magic prefix: %q", framed[:4])
		}

		got, err := unframeEntry(framed)
		if err != nil {
			t.Fatalf("unframeEntry() error = %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("payload mismatch: got %d bytes, want %d", len(got), len(payload))
		}
	}
}

func TestEntryFraming_DetectsCorruption(t *testing.T) {
	valid := frameEntry([]byte("payload"))

	flipped := append([]byte(nil), valid...)
	flipped[len(flipped)-1] ^= 0xff

	badMagic := append([]byte(nil), valid...)
	badMagic[0] = 'X'

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "truncated header", data: valid[:6]},
		{name: "truncated payload", data: valid[:len(valid)-2]},
		{name: "flipped payload byte", data: flipped},
		{name: "bad magic", data: badMagic},
		{name: "foreign bytes", data: []byte("not an entry at all")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := unframeEntry(tt.data)
			if !errors.Is(err, ErrCorruptEntry) {
				t.Errorf("unframeEntry() error = %v, want ErrCorruptEntry", err)
			}
		})
	}
}
