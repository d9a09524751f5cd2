package tapeio

import (
	"bytes"
	"testing"
)

func TestLoadAlphaStripsCR(t *testing.T) {
	got := LoadAlpha([]byte("AB\r\nCD\r"))
	want := []byte("AB\nCD")
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadHexParsesTokensAndSkipsBad(t *testing.T) {
	data, skipped := LoadHex([]byte("04 00 0x01 ZZ 05"))
	want := []byte{0x04, 0x00, 0x01, 0x05}
	if !bytes.Equal(data, want) {
		t.Errorf("data = %v, want %v", data, want)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}

func TestSaveHexRoundTripsWithLoadHex(t *testing.T) {
	orig := make([]byte, 20)
	for i := range orig {
		orig[i] = byte(i * 7)
	}
	text := SaveHex(orig)
	if bytes.Contains([]byte(text), []byte(":")) {
		t.Error("SaveHex should use spaces, not colons, as separators")
	}
	got, skipped := LoadHex([]byte(text))
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if !bytes.Equal(got, orig) {
		t.Errorf("round trip = %v, want %v", got, orig)
	}
}

func TestSaveHexWrapsEveryOneSixteen(t *testing.T) {
	data := make([]byte, 17)
	text := SaveHex(data)
	lines := bytes.Split(bytes.TrimRight([]byte(text), "\n"), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
}

func TestSaveAlphaEscapesNonPrintable(t *testing.T) {
	got := SaveAlpha([]byte{'A', 0x01, '\n', '\t', 0x7F, 'Z'})
	want := "A.\n\t.Z"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSaveRawTrailingNewline(t *testing.T) {
	got := SaveRaw([]byte("hi"), true)
	if !bytes.Equal(got, []byte("hi\n")) {
		t.Errorf("got %q", got)
	}
	got = SaveRaw([]byte("hi"), false)
	if !bytes.Equal(got, []byte("hi")) {
		t.Errorf("got %q", got)
	}
}
