package argval

import "strconv"

// OptIntValue holds the OPTNUM case: an integer, or the literal "none",
// kept distinct from the integer zero.
type OptIntValue struct {
	N       int
	Present bool
}

func NewOptInt(n int) *OptIntValue  { return &OptIntValue{N: n, Present: true} }
func NewOptIntAbsent() *OptIntValue { return &OptIntValue{} }

func (v *OptIntValue) Tag() Tag { return OPTNUM }

func (v *OptIntValue) Encode() string {
	if !v.Present {
		return "none"
	}
	return strconv.Itoa(v.N)
}
