// Package dataset reads question/answer pairs stored as JSON Lines and
// groups them into padded id batches.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/samcharles93/seqqa/internal/seq2seq"
	"github.com/samcharles93/seqqa/internal/vocab"
)

const maxLineSize = 4 << 20

// Pair is one line of a dataset file.
type Pair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Read parses one JSON object per line.  Blank lines are skipped; a pair
// with an empty question or answer is an error.
func Read(r io.Reader) ([]Pair, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	var pairs []Pair
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		var p Pair
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
			return nil, fmt.Errorf("dataset: line %d: empty question or answer", line)
		}
		pairs = append(pairs, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return pairs, nil
}

// ReadFile is Read on the named file.
func ReadFile(path string) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// Texts returns every question and answer, for fitting a vocabulary.
func Texts(pairs []Pair) []string {
	out := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		out = append(out, p.Question, p.Answer)
	}
	return out
}

// Batch holds padded id rows.  Questions are MaxQuestionLen wide; Targets
// are MaxAnswerLen wide and end with vocab.EndID when the answer fits.
// Rows past Size are all padding.
type Batch struct {
	Questions [][]int
	Targets   [][]int
	Size      int
}

// Batches encodes pairs into groups of cfg.BatchSize.  The last batch is
// filled up with all-zero rows.
func Batches(pairs []Pair, voc *vocab.Vocabulary, cfg seq2seq.Config) []Batch {
	if cfg.BatchSize <= 0 || len(pairs) == 0 {
		return nil
	}
	var out []Batch
	for start := 0; start < len(pairs); start += cfg.BatchSize {
		end := min(start+cfg.BatchSize, len(pairs))
		b := Batch{
			Questions: make([][]int, cfg.BatchSize),
			Targets:   make([][]int, cfg.BatchSize),
			Size:      end - start,
		}
		for i := range cfg.BatchSize {
			if start+i < end {
				p := pairs[start+i]
				b.Questions[i] = voc.Encode(p.Question, cfg.MaxQuestionLen)
				b.Targets[i] = Target(voc, p.Answer, cfg.MaxAnswerLen)
				continue
			}
			b.Questions[i] = make([]int, cfg.MaxQuestionLen)
			b.Targets[i] = make([]int, cfg.MaxAnswerLen)
		}
		out = append(out, b)
	}
	return out
}

// Target encodes an answer as decoder targets: the answer words followed by
// vocab.EndID, without the start marker, padded to maxLen.
func Target(voc *vocab.Vocabulary, answer string, maxLen int) []int {
	return voc.EncodeAnswer(answer, maxLen+1)[1:]
}
