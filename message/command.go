package message

import (
	"strconv"
	"strings"
)

const (
	// Delimiter terminates every request and reply.
	Delimiter = ';'
	// ResultDone is the result token of a completed command.
	ResultDone = "done"
	// ResultFail is the result token of a command the controller refused or aborted.
	ResultFail = "fail"

	nameSep  = ':'
	paramSep = '#'
)

// Param is one tagged command parameter.
type Param struct {
	Key   string
	Value Value
}

// P is a shorthand for building a Param.
func P(key string, v Value) Param {
	return Param{Key: key, Value: v}
}

// Command is an outbound instruction.
type Command struct {
	Name   string
	Params []Param
	// FloatDigits fixes the number of decimals written for FloatValue parameters.
	// Zero writes the shortest representation.
	FloatDigits int
}

// NewCommand builds a command with the given parameters in order.
func NewCommand(name string, params ...Param) Command {
	return Command{Name: name, Params: params}
}

// Encode returns the wire text of the command, including the trailing delimiter.
func (c Command) Encode() string {
	var sb strings.Builder
	sb.Grow(len(c.Name) + 1 + len(c.Params)*8)

	sb.WriteString(c.Name)
	if len(c.Params) > 0 {
		sb.WriteByte(nameSep)
		for _, p := range c.Params {
			sb.WriteByte(paramSep)
			sb.WriteString(p.Key)
			sb.WriteString(c.formatValue(p.Value))
		}
	}
	sb.WriteByte(Delimiter)

	return sb.String()
}

// String implements fmt.Stringer.
func (c Command) String() string {
	return c.Encode()
}

func (c Command) formatValue(v Value) string {
	if f, ok := v.(FloatValue); ok && c.FloatDigits > 0 {
		return strconv.FormatFloat(float64(f), 'f', c.FloatDigits, 64)
	}
	if v == nil {
		return ""
	}

	return v.String()
}

// Encode is a convenience wrapper for NewCommand(name, params...).Encode().
func Encode(name string, params ...Param) string {
	return NewCommand(name, params...).Encode()
}
