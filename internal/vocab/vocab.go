// Package vocab maps words to token ids for questions and answers.
package vocab

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

// Reserved ids.  PadID must stay zero: masks treat id 0 as padding.
const (
	PadID   = 0
	UnkID   = 1
	StartID = 2
	EndID   = 3
)

const (
	PadToken   = "<pad>"
	UnkToken   = "<unk>"
	StartToken = "<start>"
	EndToken   = "<end>"
)

var reserved = []string{PadToken, UnkToken, StartToken, EndToken}

// filters are the characters stripped before splitting, the same set Keras'
// text tokenizer drops by default.
const filters = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~\t\n"

// Vocabulary is an immutable word <-> id mapping.
type Vocabulary struct {
	tokens []string
	ids    map[string]int
}

type fileFormat struct {
	Version int      `json:"version"`
	Tokens  []string `json:"tokens"`
}

// New builds a vocabulary from tokens indexed by id.  The first four tokens
// must be the reserved ones, in order.
func New(tokens []string) (*Vocabulary, error) {
	if len(tokens) < len(reserved) {
		return nil, fmt.Errorf("vocab: %d tokens, need at least %d", len(tokens), len(reserved))
	}
	for i, r := range reserved {
		if tokens[i] != r {
			return nil, fmt.Errorf("vocab: id %d is %q, want %q", i, tokens[i], r)
		}
	}
	v := &Vocabulary{
		tokens: append([]string(nil), tokens...),
		ids:    make(map[string]int, len(tokens)),
	}
	for i, t := range v.tokens {
		if _, dup := v.ids[t]; dup {
			return nil, fmt.Errorf("vocab: duplicate token %q", t)
		}
		v.ids[t] = i
	}
	return v, nil
}

// Fit counts words across texts and keeps the most frequent ones, ties
// broken by first appearance.  maxSize bounds the total size including the
// reserved tokens; zero or less means unbounded.
func Fit(texts []string, maxSize int) *Vocabulary {
	type entry struct {
		word  string
		count int
		first int
	}
	seen := make(map[string]*entry)
	var order []*entry
	for _, text := range texts {
		for _, w := range Tokenize(text) {
			if slices.Contains(reserved, w) {
				continue
			}
			e, ok := seen[w]
			if !ok {
				e = &entry{word: w, first: len(order)}
				seen[w] = e
				order = append(order, e)
			}
			e.count++
		}
	}
	slices.SortStableFunc(order, func(a, b *entry) int {
		return b.count - a.count
	})

	tokens := append([]string(nil), reserved...)
	for _, e := range order {
		if maxSize > 0 && len(tokens) >= maxSize {
			break
		}
		tokens = append(tokens, e.word)
	}
	v, _ := New(tokens)
	return v
}

// Tokenize lowercases text, replaces filtered punctuation with spaces and
// splits on whitespace.
func Tokenize(text string) []string {
	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(filters, r) {
			return ' '
		}
		return r
	}, strings.ToLower(text))
	return strings.Fields(text)
}

// Size is the number of ids, including the reserved ones.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// ID returns the id of word.
func (v *Vocabulary) ID(word string) (int, bool) {
	id, ok := v.ids[word]
	return id, ok
}

// Token returns the word for id, or UnkToken when id is unknown.
func (v *Vocabulary) Token(id int) string {
	if id < 0 || id >= len(v.tokens) {
		return UnkToken
	}
	return v.tokens[id]
}

func (v *Vocabulary) lookup(word string) int {
	if id, ok := v.ids[word]; ok {
		return id
	}
	return UnkID
}

// Encode tokenizes text into exactly maxLen ids: truncated at the end and
// padded with PadID after the last word.
func (v *Vocabulary) Encode(text string, maxLen int) []int {
	out := make([]int, maxLen)
	for i, w := range Tokenize(text) {
		if i >= maxLen {
			break
		}
		out[i] = v.lookup(w)
	}
	return out
}

// EncodeAnswer wraps the words of text in StartID ... EndID and pads to
// maxLen.  Words are dropped from the end so EndID always fits.
func (v *Vocabulary) EncodeAnswer(text string, maxLen int) []int {
	out := make([]int, maxLen)
	if maxLen < 2 {
		return out
	}
	words := Tokenize(text)
	if len(words) > maxLen-2 {
		words = words[:maxLen-2]
	}
	out[0] = StartID
	for i, w := range words {
		out[i+1] = v.lookup(w)
	}
	out[len(words)+1] = EndID
	return out
}

// Decode joins the words of ids, skipping padding and the start marker and
// stopping at the first EndID.
func (v *Vocabulary) Decode(ids []int) string {
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == EndID {
			break
		}
		if id == PadID || id == StartID {
			continue
		}
		words = append(words, v.Token(id))
	}
	return strings.Join(words, " ")
}

// Save writes the vocabulary as JSON.
func (v *Vocabulary) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fileFormat{Version: 1, Tokens: v.tokens})
}

// Load reads a vocabulary written by Save.
func Load(r io.Reader) (*Vocabulary, error) {
	var f fileFormat
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("vocab: decode: %w", err)
	}
	if f.Version != 1 {
		return nil, fmt.Errorf("vocab: unsupported version %d", f.Version)
	}
	return New(f.Tokens)
}
