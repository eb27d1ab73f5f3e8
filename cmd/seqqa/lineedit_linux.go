//go:build linux

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

var questionHistory []string

// readInteractiveLine prompts for one question.  On a terminal it switches
// stdin to raw mode for cursor movement and history; otherwise it reads a
// plain line.
func readInteractiveLine(prompt string) (string, error) {
	if !stdinIsTTY() {
		return readPipedLine(stdinReader)
	}

	fd := int(os.Stdin.Fd())
	restore, err := rawMode(fd)
	if err != nil {
		return "", err
	}
	defer restore()

	ed := newLineEditor(prompt, os.Stdout, questionHistory)
	fmt.Fprint(ed.out, prompt)
	var buf [16]byte
	for {
		n, err := os.Stdin.Read(buf[:])
		if err != nil {
			return "", err
		}
		for _, b := range buf[:n] {
			line, done, err := ed.feed(b)
			if err != nil {
				return "", err
			}
			if done {
				if strings.TrimSpace(line) != "" {
					questionHistory = append(questionHistory, line)
				}
				return line, nil
			}
		}
	}
}

func rawMode(fd int) (func(), error) {
	old, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}
	raw := *old
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, err
	}
	return func() { _ = unix.IoctlSetTermios(fd, unix.TCSETS, old) }, nil
}

type escState int

const (
	escNone escState = iota
	escStart
	escCSI
)

// lineEditor holds the state of one line being edited.  Bytes are fed in one
// at a time; the terminal is only ever written to, never read.
type lineEditor struct {
	prompt string
	out    io.Writer

	line   []byte
	cursor int

	esc    escState
	escSeq []byte

	history []string
	histPos int
	draft   string
}

func newLineEditor(prompt string, out io.Writer, history []string) *lineEditor {
	return &lineEditor{
		prompt:  prompt,
		out:     out,
		line:    make([]byte, 0, 256),
		history: history,
		histPos: len(history),
	}
}

// feed consumes one input byte.  It returns the finished line and true on
// Enter, and io.EOF on Ctrl+C or on Ctrl+D at an empty line.
func (e *lineEditor) feed(b byte) (string, bool, error) {
	switch e.esc {
	case escStart:
		e.esc = escNone
		switch b {
		case '[':
			e.esc = escCSI
			e.escSeq = e.escSeq[:0]
		case 'b', 'B':
			e.setCursor(e.wordLeft())
		case 'f', 'F':
			e.setCursor(e.wordRight())
		case 127:
			e.cut(e.wordLeft(), e.cursor)
		}
		return "", false, nil
	case escCSI:
		e.escSeq = append(e.escSeq, b)
		if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
			e.esc = escNone
			e.csi(string(e.escSeq))
		}
		return "", false, nil
	}

	switch b {
	case 27:
		e.esc = escStart
	case '\r', '\n':
		fmt.Fprint(e.out, "\r\n")
		return string(e.line), true, nil
	case 3: // Ctrl+C
		fmt.Fprint(e.out, "^C\r\n")
		return "", false, io.EOF
	case 4: // Ctrl+D
		if len(e.line) == 0 {
			fmt.Fprint(e.out, "\r\n")
			return "", false, io.EOF
		}
		e.cut(e.cursor, min(e.cursor+1, len(e.line)))
	case 127, 8:
		if e.cursor > 0 {
			e.cut(e.cursor-1, e.cursor)
		}
	case 1: // Ctrl+A
		e.setCursor(0)
	case 5: // Ctrl+E
		e.setCursor(len(e.line))
	case 11: // Ctrl+K
		e.cut(e.cursor, len(e.line))
	case 21: // Ctrl+U
		e.cut(0, e.cursor)
	case 23: // Ctrl+W
		e.cut(e.wordLeft(), e.cursor)
	default:
		if b >= 32 {
			e.insert(b)
		}
	}
	return "", false, nil
}

func (e *lineEditor) csi(seq string) {
	switch seq {
	case "A":
		e.historyPrev()
	case "B":
		e.historyNext()
	case "D":
		e.setCursor(max(e.cursor-1, 0))
	case "C":
		e.setCursor(min(e.cursor+1, len(e.line)))
	case "H", "1~":
		e.setCursor(0)
	case "F", "4~":
		e.setCursor(len(e.line))
	case "3~":
		e.cut(e.cursor, min(e.cursor+1, len(e.line)))
	case "1;5D", "5D":
		e.setCursor(e.wordLeft())
	case "1;5C", "5C":
		e.setCursor(e.wordRight())
	case "3;5~":
		e.cut(e.cursor, e.wordRight())
	}
}

func (e *lineEditor) insert(b byte) {
	e.line = append(e.line, 0)
	copy(e.line[e.cursor+1:], e.line[e.cursor:])
	e.line[e.cursor] = b
	e.cursor++
	e.redraw()
}

// cut removes line[from:to] and leaves the cursor at from.
func (e *lineEditor) cut(from, to int) {
	if from >= to {
		return
	}
	e.line = append(e.line[:from], e.line[to:]...)
	e.cursor = from
	e.redraw()
}

func (e *lineEditor) setCursor(pos int) {
	if pos == e.cursor {
		return
	}
	e.cursor = pos
	e.redraw()
}

func (e *lineEditor) wordLeft() int {
	i := e.cursor
	for i > 0 && isBlank(e.line[i-1]) {
		i--
	}
	for i > 0 && !isBlank(e.line[i-1]) {
		i--
	}
	return i
}

func (e *lineEditor) wordRight() int {
	i := e.cursor
	for i < len(e.line) && isBlank(e.line[i]) {
		i++
	}
	for i < len(e.line) && !isBlank(e.line[i]) {
		i++
	}
	return i
}

func (e *lineEditor) historyPrev() {
	if e.histPos == 0 {
		return
	}
	if e.histPos == len(e.history) {
		e.draft = string(e.line)
	}
	e.histPos--
	e.replace(e.history[e.histPos])
}

func (e *lineEditor) historyNext() {
	if e.histPos >= len(e.history) {
		return
	}
	e.histPos++
	if e.histPos == len(e.history) {
		e.replace(e.draft)
		return
	}
	e.replace(e.history[e.histPos])
}

func (e *lineEditor) replace(s string) {
	e.line = append(e.line[:0], s...)
	e.cursor = len(e.line)
	e.redraw()
}

func (e *lineEditor) redraw() {
	fmt.Fprintf(e.out, "\r%s%s\x1b[K", e.prompt, e.line)
	if e.cursor < len(e.line) {
		fmt.Fprintf(e.out, "\r%s%s", e.prompt, e.line[:e.cursor])
	}
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t'
}
