package repl

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/drake/quill/stream"
)

func TestRawPasteRoundTrip(t *testing.T) {
	ts := newTestSession(t, Options{})

	ts.conn.FeedString("abcdefg")
	ts.conn.Feed([]byte{stream.CtrlD})

	data, err := ts.sess.rawPaste(context.Background(), 3)
	if err != nil {
		t.Fatalf("rawPaste: %v", err)
	}
	if string(data) != "abcdefg" {
		t.Errorf("data = %q, want abcdefg", data)
	}

	// Header with window=3, one continuation per drained window, then
	// the end-of-transfer acknowledgement.
	want := []byte{'R', 0x01, 0x03, 0x00, 0x01, 0x01, 0x01, 0x04}
	if got := ts.conn.Output(); !bytes.Equal(got, want) {
		t.Errorf("output = %v, want %v", got, want)
	}
	if st := ts.sess.Stats(); st.RawPasteBytes != 7 {
		t.Errorf("RawPasteBytes = %d, want 7", st.RawPasteBytes)
	}
}

// A payload that is an exact multiple of the window ends with an empty
// final chunk; no stray bytes and no extra continuation.
func TestRawPasteExactWindowMultiple(t *testing.T) {
	ts := newTestSession(t, Options{})

	ts.conn.FeedString("abcdef")
	ts.conn.Feed([]byte{stream.CtrlD})

	data, err := ts.sess.rawPaste(context.Background(), 3)
	if err != nil {
		t.Fatalf("rawPaste: %v", err)
	}
	if string(data) != "abcdef" {
		t.Errorf("data = %q, want abcdef", data)
	}
	if n := bytes.Count(ts.conn.Output()[5:], []byte{0x01}); n != 2 {
		t.Errorf("continuations = %d, want 2", n)
	}
}

func TestRawPasteEmptyTransfer(t *testing.T) {
	ts := newTestSession(t, Options{})

	ts.conn.Feed([]byte{stream.CtrlD})

	data, err := ts.sess.rawPaste(context.Background(), 16)
	if err != nil {
		t.Fatalf("rawPaste: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("data = %q, want empty", data)
	}
}

func TestRawPasteAbort(t *testing.T) {
	ts := newTestSession(t, Options{})

	ts.conn.FeedString("ab")
	ts.conn.Feed([]byte{stream.CtrlC})

	_, err := ts.sess.rawPaste(context.Background(), 16)
	if !errors.Is(err, errPasteAborted) {
		t.Fatalf("err = %v, want errPasteAborted", err)
	}
	// Abort is still acknowledged so the sender stops cleanly.
	if !bytes.HasSuffix(ts.conn.Output(), []byte{0x04}) {
		t.Errorf("output %q missing abort acknowledgement", ts.conn.Output())
	}
	if st := ts.sess.Stats(); st.RawPasteBytes != 0 {
		t.Errorf("RawPasteBytes = %d after abort, want 0", st.RawPasteBytes)
	}
}

func TestRawPasteGarbageRetried(t *testing.T) {
	ts := newTestSession(t, Options{})

	ts.conn.FeedString("ab")
	ts.conn.FeedBad()
	ts.conn.FeedString("cd")
	ts.conn.Feed([]byte{stream.CtrlD})

	data, err := ts.sess.rawPaste(context.Background(), 16)
	if err != nil {
		t.Fatalf("rawPaste: %v", err)
	}
	if string(data) != "abcd" {
		t.Errorf("data = %q, want abcd", data)
	}
}

// Control bytes other than Ctrl-C/Ctrl-D are payload, not protocol:
// uploaded source may legitimately contain them.
func TestRawPastePayloadIsBinaryClean(t *testing.T) {
	ts := newTestSession(t, Options{})

	payload := []byte{'x', stream.CtrlA, stream.CtrlE, 0x00, 0xff}
	ts.conn.Feed(payload)
	ts.conn.Feed([]byte{stream.CtrlD})

	data, err := ts.sess.rawPaste(context.Background(), 16)
	if err != nil {
		t.Fatalf("rawPaste: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("data = %v, want %v", data, payload)
	}
}
