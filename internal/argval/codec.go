package argval

import (
	"regexp"
	"strconv"
	"strings"
)

// fragments maps each tag to its regular-expression fragment. STR and PATH
// share a fragment: the grammar does not distinguish them on the wire, only
// in how the caller chooses to label the argument.
var fragments = map[Tag]string{
	STR:    `"((?:[^\\]|\\["\\nrt])*)"`,
	PATH:   `"((?:[^\\]|\\["\\nrt])*)"`,
	NUM:    `(-?\d+)`,
	OPTNUM: `(none|-?\d+)`,
	POS:    `(\d+/\d+)`,
	BOOL:   `(T|F)`,
	OPTMSG: `(.+)?`,
}

// buildPattern concatenates the per-tag fragments with single-space
// separators and anchors the result to both ends of the string.
func buildPattern(spec []Tag) (*regexp.Regexp, error) {
	parts := make([]string, len(spec))
	for i, tag := range spec {
		frag, ok := fragments[tag]
		if !ok {
			return nil, &ParseError{Msg: "unknown argument tag: " + string(tag)}
		}
		parts[i] = frag
	}
	return regexp.Compile("^" + strings.Join(parts, " ") + "$")
}

// ParseArgs decodes tail according to spec, one Value per tag in order.
func ParseArgs(tail []byte, spec []Tag) ([]Value, error) {
	if len(spec) == 0 {
		if len(tail) != 0 {
			return nil, &ParseError{Msg: "unexpected trailing argument data: " + string(tail)}
		}
		return nil, nil
	}

	re, err := buildPattern(spec)
	if err != nil {
		return nil, err
	}

	m := re.FindStringSubmatch(string(tail))
	if m == nil {
		return nil, &ParseError{Msg: "argument tail '" + string(tail) + "' does not match pattern " + re.String()}
	}

	values := make([]Value, len(spec))
	for i, tag := range spec {
		capture := m[i+1]
		v, err := decodeOne(tag, capture)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func decodeOne(tag Tag, capture string) (Value, error) {
	switch tag {
	case STR:
		s, err := unescapeString(capture)
		if err != nil {
			return nil, err
		}
		return NewString(s), nil
	case PATH:
		s, err := unescapeString(capture)
		if err != nil {
			return nil, err
		}
		return NewPath(s), nil
	case NUM:
		n, err := strconv.Atoi(capture)
		if err != nil {
			return nil, &ParseError{Msg: "malformed NUM: " + capture}
		}
		return NewInt(n), nil
	case OPTNUM:
		if capture == "none" {
			return NewOptIntAbsent(), nil
		}
		n, err := strconv.Atoi(capture)
		if err != nil {
			return nil, &ParseError{Msg: "malformed OPTNUM: " + capture}
		}
		return NewOptInt(n), nil
	case POS:
		parts := strings.SplitN(capture, "/", 2)
		if len(parts) != 2 {
			return nil, &ParseError{Msg: "malformed POS: " + capture}
		}
		line, err1 := strconv.Atoi(parts[0])
		col, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return nil, &ParseError{Msg: "malformed POS: " + capture}
		}
		return NewPosition(line, col), nil
	case BOOL:
		switch capture {
		case "T":
			return NewBool(true), nil
		case "F":
			return NewBool(false), nil
		default:
			return nil, &ParseError{Msg: "malformed BOOL: " + capture}
		}
	case OPTMSG:
		if capture == "" {
			return NewOptMsgAbsent(), nil
		}
		return NewOptMsg(capture), nil
	default:
		return nil, &ParseError{Msg: "unknown argument tag: " + string(tag)}
	}
}

// EncodeArgs produces a leading space followed by space-separated encoded
// tokens when values is non-empty; an empty slice yields an empty result.
func EncodeArgs(values []Value) []byte {
	if len(values) == 0 {
		return nil
	}
	tokens := make([]string, len(values))
	for i, v := range values {
		tokens[i] = v.Encode()
	}
	return []byte(" " + strings.Join(tokens, " "))
}
