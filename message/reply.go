package message

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCommand indicates a reply without a command name.
	ErrEmptyCommand = errors.New("message: reply has no command name")
	// ErrDuplicateKey indicates a reply carrying the same state key twice.
	ErrDuplicateKey = errors.New("message: duplicate state key")
)

// Key identifies a state entry, either by tag (X, RZ) or by position among untagged tokens.
type Key struct {
	tag   string
	index int
}

// Tag returns the key of a tagged state entry.
func Tag(name string) Key { return Key{tag: name} }

// Index returns the key of the i-th untagged state entry.
func Index(i int) Key { return Key{index: i} }

// IsTag reports whether k was produced by Tag.
func (k Key) IsTag() bool { return k.tag != "" }

// Name returns the tag, or the empty string for positional keys.
func (k Key) Name() string { return k.tag }

// Position returns the position of an untagged key.
func (k Key) Position() int { return k.index }

func (k Key) String() string {
	if k.IsTag() {
		return k.tag
	}
	return fmt.Sprintf("%d", k.index)
}

// State maps reply keys to their values.
type State map[Key]Value

// Reply is a decoded controller reply.
type Reply struct {
	Command string
	Result  string
	State   State
}

// Decode parses the wire text of a reply. The trailing delimiter is optional.
func Decode(raw string) (*Reply, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, string(Delimiter))

	name, rest, _ := strings.Cut(s, string(nameSep))
	if name == "" {
		return nil, fmt.Errorf("%w: %q", ErrEmptyCommand, raw)
	}

	reply := &Reply{Command: name, State: State{}}

	tokens := strings.Split(rest, string(paramSep))
	untagged := 0

	result, detail, hasDetail := cutDetail(tokens[0])
	reply.Result = result
	if hasDetail {
		reply.State[Index(untagged)] = StringValue(detail)
		untagged++
	}

	for _, tok := range tokens[1:] {
		if tok == "" {
			continue
		}

		var key Key
		var val Value
		if tag, v, ok := splitTag(tok); ok {
			key, val = Tag(tag), v
		} else {
			key, val = Index(untagged), ParseValue(tok)
			untagged++
		}

		if _, exists := reply.State[key]; exists {
			return nil, fmt.Errorf("%w %s in %q", ErrDuplicateKey, key, raw)
		}
		reply.State[key] = val
	}

	return reply, nil
}

// cutDetail splits "fail_'Reason'" into ("fail", "Reason", true).
func cutDetail(tok string) (result, detail string, ok bool) {
	result, detail, ok = strings.Cut(tok, "_'")
	if !ok {
		return tok, "", false
	}

	return result, strings.TrimSuffix(detail, "'"), true
}

// splitTag splits tagged numeric tokens such as "RX90" or "Z-653".
func splitTag(tok string) (string, Value, bool) {
	i := 0
	for i < len(tok) && isLetter(tok[i]) {
		i++
	}
	if i == 0 || i == len(tok) {
		return "", nil, false
	}

	v := ParseValue(tok[i:])
	if v.Kind() == StringKind {
		return "", nil, false
	}

	return tok[:i], v, true
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// IsFailure reports whether the controller answered with the fail result.
func (r *Reply) IsFailure() bool {
	return r.Result == ResultFail
}

// IsDone reports whether the controller answered with the done result.
func (r *Reply) IsDone() bool {
	return r.Result == ResultDone
}

// Detail returns the quoted reason of a failure, if any.
func (r *Reply) Detail() string {
	if !r.IsFailure() {
		return ""
	}
	if v, ok := r.State[Index(0)].(StringValue); ok {
		return string(v)
	}

	return ""
}

// Get returns the value stored under key.
func (r *Reply) Get(key Key) (Value, bool) {
	v, ok := r.State[key]
	return v, ok
}

// Float returns the numeric value of a tagged entry, accepting integers.
func (r *Reply) Float(tag string) (float64, error) {
	v, ok := r.State[Tag(tag)]
	if !ok {
		return 0, fmt.Errorf("message: %s reply has no %s value", r.Command, tag)
	}

	f, ok := AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("message: %s reply value %s=%q is not numeric", r.Command, tag, v)
	}

	return f, nil
}

// Int returns the integer value of a tagged entry.
func (r *Reply) Int(tag string) (int64, error) {
	v, ok := r.State[Tag(tag)]
	if !ok {
		return 0, fmt.Errorf("message: %s reply has no %s value", r.Command, tag)
	}

	i, ok := v.(IntValue)
	if !ok {
		return 0, fmt.Errorf("message: %s reply value %s=%q is not an integer", r.Command, tag, v)
	}

	return int64(i), nil
}

// Text returns the i-th untagged entry as text.
func (r *Reply) Text(i int) (string, error) {
	v, ok := r.State[Index(i)]
	if !ok {
		return "", fmt.Errorf("message: %s reply has no value at position %d", r.Command, i)
	}

	return v.String(), nil
}
