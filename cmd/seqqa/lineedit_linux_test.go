//go:build linux

package main

import (
	"errors"
	"io"
	"testing"
)

func feedAll(t *testing.T, ed *lineEditor, input string) (string, bool, error) {
	t.Helper()
	for i := 0; i < len(input); i++ {
		line, done, err := ed.feed(input[i])
		if done || err != nil {
			return line, done, err
		}
	}
	return string(ed.line), false, nil
}

func TestLineEditorEditing(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "what is go\r", "what is go"},
		{"backspace", "whatt\x7f is\r", "what is"},
		{"insert after left arrow", "wht\x1b[Da\r", "what"},
		{"home and end", "is\x01what \x05 go\r", "what is go"},
		{"ctrl w deletes word", "what is go\x17\r", "what is "},
		{"ctrl u clears to start", "abc def\x1b[D\x1b[D\x1b[D\x15\r", "def"},
		{"ctrl k clears to end", "abc def\x01\x1b[C\x0b\r", "a"},
		{"delete key", "abcd\x1b[H\x1b[3~\r", "bcd"},
		{"word left", "one two\x1b[1;5DX\r", "one Xtwo"},
		{"alt backspace", "one two\x1b\x7f\r", "one "},
		{"control bytes ignored", "a\x02b\r", "ab"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ed := newLineEditor("> ", io.Discard, nil)
			got, done, err := feedAll(t, ed, tc.input)
			if err != nil || !done {
				t.Fatalf("done=%v err=%v", done, err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestLineEditorHistory(t *testing.T) {
	t.Parallel()
	history := []string{"first", "second"}

	ed := newLineEditor("> ", io.Discard, history)
	got, _, _ := feedAll(t, ed, "dra\x1b[A\x1b[A\r")
	if got != "first" {
		t.Fatalf("two ups: got %q", got)
	}

	ed = newLineEditor("> ", io.Discard, history)
	got, _, _ = feedAll(t, ed, "draft\x1b[A\x1b[B\r")
	if got != "draft" {
		t.Fatalf("up then down should restore draft, got %q", got)
	}

	ed = newLineEditor("> ", io.Discard, history)
	got, _, _ = feedAll(t, ed, "\x1b[A\x1b[A\x1b[A\r")
	if got != "first" {
		t.Fatalf("up past oldest: got %q", got)
	}
}

func TestLineEditorEOF(t *testing.T) {
	t.Parallel()
	ed := newLineEditor("> ", io.Discard, nil)
	if _, _, err := feedAll(t, ed, "\x04"); !errors.Is(err, io.EOF) {
		t.Fatalf("ctrl-d on empty line: %v", err)
	}

	ed = newLineEditor("> ", io.Discard, nil)
	if _, _, err := feedAll(t, ed, "abc\x03"); !errors.Is(err, io.EOF) {
		t.Fatalf("ctrl-c: %v", err)
	}

	ed = newLineEditor("> ", io.Discard, nil)
	got, done, err := feedAll(t, ed, "ab\x01\x04\r")
	if err != nil || !done || got != "b" {
		t.Fatalf("ctrl-d mid-line should delete: %q %v %v", got, done, err)
	}
}
