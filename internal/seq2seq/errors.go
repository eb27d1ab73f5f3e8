package seq2seq

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch reports a tensor whose dimensions disagree with the
	// configured sizes or with another argument of the same call.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidState reports a recurrent state whose shape disagrees with the
	// batch or the unit count.
	ErrInvalidState = errors.New("invalid state")
	// ErrMaskDerivationAmbiguity reports that the all-zero-row test on encoder
	// outputs does not reproduce the mask of the original question ids.
	ErrMaskDerivationAmbiguity = errors.New("mask derivation ambiguity")
	// ErrTokenOutOfRange reports a token id outside [0, vocab_size).
	ErrTokenOutOfRange = errors.New("token id out of range")
)

type dimError struct {
	kind error
	what string
	got  int
	want int
}

func (e dimError) Error() string {
	return fmt.Sprintf("%v: %s: got %d, want %d", e.kind, e.what, e.got, e.want)
}

func (e dimError) Unwrap() error {
	return e.kind
}

func shapeMismatch(what string, got, want int) error {
	return dimError{kind: ErrShapeMismatch, what: what, got: got, want: want}
}

func invalidState(what string, got, want int) error {
	return dimError{kind: ErrInvalidState, what: what, got: got, want: want}
}

type tokenError struct {
	row, pos, id, vocab int
}

func (e tokenError) Error() string {
	return fmt.Sprintf("%v: row %d position %d: id %d not in [0,%d)", ErrTokenOutOfRange, e.row, e.pos, e.id, e.vocab)
}

func (e tokenError) Unwrap() error {
	return ErrTokenOutOfRange
}

type ambiguityError struct {
	row, pos  int
	zeroRow   bool
	tokenMask bool
}

func (e ambiguityError) Error() string {
	return fmt.Sprintf("%v: row %d position %d: all-zero output=%t but question mask=%t",
		ErrMaskDerivationAmbiguity, e.row, e.pos, e.zeroRow, e.tokenMask)
}

func (e ambiguityError) Unwrap() error {
	return ErrMaskDerivationAmbiguity
}
