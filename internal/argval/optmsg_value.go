package argval

// OptMsgValue holds the OPTMSG case: an optional raw (unquoted, unescaped)
// trailing message. Absent is distinct from an empty string when decoded,
// but the two collapse on encode — an empty message and no message both
// encode to the empty string, so round-tripping an empty OPTMSG through
// EncodeArgs/ParseArgs yields an absent value, not an empty one.
type OptMsgValue struct {
	S       string
	Present bool
}

func NewOptMsg(s string) *OptMsgValue { return &OptMsgValue{S: s, Present: true} }
func NewOptMsgAbsent() *OptMsgValue   { return &OptMsgValue{} }

func (v *OptMsgValue) Tag() Tag { return OPTMSG }

func (v *OptMsgValue) Encode() string {
	if !v.Present {
		return ""
	}
	return v.S
}
