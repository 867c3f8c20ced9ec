package message

import (
	"strconv"
	"strings"
)

// Kind identifies the concrete type held by a Value.
type Kind int

const (
	IntKind Kind = iota
	FloatKind
	StringKind
)

func (k Kind) String() string {
	switch k {
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case StringKind:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a single parameter or state value. It is one of IntValue, FloatValue or StringValue.
type Value interface {
	Kind() Kind
	// String returns the value the way it is written on the wire.
	String() string

	isValue()
}

// IntValue is an integer token such as the 982 in X982.
type IntValue int64

// FloatValue is a decimal token such as the 1.432 in X1.432.
type FloatValue float64

// StringValue is any token that is not a number.
type StringValue string

func (IntValue) Kind() Kind    { return IntKind }
func (FloatValue) Kind() Kind  { return FloatKind }
func (StringValue) Kind() Kind { return StringKind }

func (v IntValue) String() string { return strconv.FormatInt(int64(v), 10) }

// String always includes a decimal point so that the token decodes back into a FloatValue.
func (v FloatValue) String() string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

func (v StringValue) String() string { return string(v) }

func (IntValue) isValue()    {}
func (FloatValue) isValue()  {}
func (StringValue) isValue() {}

// ParseValue coerces a token to the first of IntValue, FloatValue or StringValue that accepts it.
func ParseValue(token string) Value {
	if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return IntValue(i)
	}
	if isDecimal(token) {
		if f, err := strconv.ParseFloat(token, 64); err == nil {
			return FloatValue(f)
		}
	}

	return StringValue(token)
}

// AsFloat returns the numeric content of v. Strings report ok == false.
func AsFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case IntValue:
		return float64(val), true
	case FloatValue:
		return float64(val), true
	default:
		return 0, false
	}
}

// isDecimal rejects the spellings strconv.ParseFloat accepts but the controller never sends,
// such as "Inf", "NaN", hex floats and exponents, so that words stay strings.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}

	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}

	return digits > 0 && dots <= 1
}
