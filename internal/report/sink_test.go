package report

import (
	"bytes"
	"errors"
	"testing"
)

func TestFSSinkWriteReadList(t *testing.T) {
	sink, err := NewFSSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSSink: %v", err)
	}

	if err := sink.Write("a.csv", []byte("one")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Write("b.csv", []byte("two")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	names, err := sink.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 || names[0] != "a.csv" || names[1] != "b.csv" {
		t.Fatalf("names = %v", names)
	}

	data, err := sink.Read("a.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(data, []byte("one")) {
		t.Fatalf("data = %q", data)
	}
}

func TestFSSinkOverwrite(t *testing.T) {
	sink, err := NewFSSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSSink: %v", err)
	}

	if err := sink.Write("export.csv", []byte("stale")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Write("export.csv", []byte("fresh")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := sink.Read("export.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "fresh" {
		t.Fatalf("data = %q, want overwrite to win", data)
	}

	// Overwriting never leaves a second artifact behind.
	names, _ := sink.List()
	if len(names) != 1 {
		t.Fatalf("names = %v, want 1 entry", names)
	}
}

func TestFSSinkRejectsPathEscape(t *testing.T) {
	sink, err := NewFSSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSSink: %v", err)
	}

	for _, name := range []string{"../escape.csv", "a/b.csv", "..", "."} {
		if err := sink.Write(name, []byte("x")); err == nil {
			t.Fatalf("Write(%q) accepted", name)
		}
		if _, err := sink.Read(name); err == nil {
			t.Fatalf("Read(%q) accepted", name)
		}
	}
}

func TestFSSinkReadMissing(t *testing.T) {
	sink, err := NewFSSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSSink: %v", err)
	}

	if _, err := sink.Read("nope.csv"); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("err = %v, want ErrArtifactNotFound", err)
	}
}
