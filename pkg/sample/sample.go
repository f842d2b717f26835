package sample

import (
	"errors"
	"strconv"
)

// Sample is a single value drawn from [Min, Max].
type Sample uint8

// Range of a Sample, both inclusive.
const (
	Min Sample = 0
	Max Sample = 100

	// Span is the number of distinct values.
	Span = int(Max-Min) + 1

	// MaxDigits is the length of the longest text form.
	MaxDigits = 3
)

var (
	// ErrSyntax indicates the text is not a canonical decimal number.
	ErrSyntax = errors.New("invalid sample syntax")
	// ErrRange indicates the value is outside [Min, Max].
	ErrRange = errors.New("sample out of range")
)

// Valid checks the value is within range.
func (s Sample) Valid() bool {
	return s <= Max
}

// String implements fmt.Stringer.
func (s Sample) String() string {
	return strconv.Itoa(int(s))
}

// Encode returns the decimal ASCII form: no sign, no leading zeros and
// nothing else.
func Encode(s Sample) []byte {
	return AppendEncode(make([]byte, 0, MaxDigits), s)
}

// AppendEncode appends the decimal form of s to dst.
func AppendEncode(dst []byte, s Sample) []byte {
	return strconv.AppendUint(dst, uint64(s), 10)
}

// Decode parses the canonical text form produced by Encode.
func Decode(text []byte) (Sample, error) {
	if len(text) == 0 {
		return 0, ErrSyntax
	}
	if len(text) > 1 && text[0] == '0' {
		return 0, ErrSyntax
	}
	var v int
	for _, c := range text {
		if c < '0' || c > '9' {
			return 0, ErrSyntax
		}
		v = v*10 + int(c-'0')
		if v > int(Max) {
			return 0, ErrRange
		}
	}
	return Sample(v), nil
}
