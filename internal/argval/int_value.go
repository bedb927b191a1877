package argval

import "strconv"

// IntValue holds the NUM case: a signed decimal integer.
type IntValue struct {
	N int
}

func NewInt(n int) *IntValue { return &IntValue{N: n} }

func (v *IntValue) Tag() Tag       { return NUM }
func (v *IntValue) Encode() string { return strconv.Itoa(v.N) }
