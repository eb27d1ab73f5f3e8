package main

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadPipedLine(t *testing.T) {
	t.Parallel()
	r := bufio.NewReader(strings.NewReader("one\r\ntwo\nthree"))
	for _, want := range []string{"one", "two", "three"} {
		got, err := readPipedLine(r)
		if err != nil {
			t.Fatalf("readPipedLine: %v", err)
		}
		if got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
	if _, err := readPipedLine(r); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}
