package embedding

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Vocabulary resolves words to token ids.
type Vocabulary interface {
	ID(word string) (int, bool)
	Size() int
}

// LoadText builds a table from pretrained vectors in GloVe text format: one
// word per line followed by dim space-separated floats.  Rows for words the
// vocabulary does not know are skipped; vocabulary entries missing from the
// file keep zero vectors.  It returns the table and the number of rows that
// were filled.
func LoadText(r io.Reader, vocab Vocabulary, dim int) (*Table, int, error) {
	if dim <= 0 {
		return nil, 0, fmt.Errorf("embedding: invalid dim %d", dim)
	}
	rows := vocab.Size()
	data := make([]float32, rows*dim)
	filled := 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		id, ok := vocab.ID(fields[0])
		if !ok || id == PadID || id >= rows {
			continue
		}
		if len(fields)-1 != dim {
			return nil, 0, fmt.Errorf("embedding: line %d: got %d values, want %d", line, len(fields)-1, dim)
		}
		row := data[id*dim : (id+1)*dim]
		for j, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, 0, fmt.Errorf("embedding: line %d: %w", line, err)
			}
			row[j] = float32(v)
		}
		filled++
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("embedding: read vectors: %w", err)
	}
	t, err := NewTable(rows, dim, data)
	if err != nil {
		return nil, 0, err
	}
	return t, filled, nil
}
