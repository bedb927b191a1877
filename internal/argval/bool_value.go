package argval

// BoolValue holds the BOOL case: T or F on the wire.
type BoolValue struct {
	B bool
}

func NewBool(b bool) *BoolValue { return &BoolValue{B: b} }

func (v *BoolValue) Tag() Tag { return BOOL }

func (v *BoolValue) Encode() string {
	if v.B {
		return "T"
	}
	return "F"
}
