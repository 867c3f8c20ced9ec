package ema

import (
	"fmt"

	"github.com/emacontrol/go-ema/message"
)

// ExpectationKind is the caller's declaration of what a successful reply looks like.
type ExpectationKind int

const (
	// ExpectNothing accepts any reply that is not a failure.
	ExpectNothing ExpectationKind = iota
	// ExpectToken accepts only a reply equal to a completion token such as "pickSample:done;".
	ExpectToken
	// ExpectExact accepts only a reply equal to a token, which may itself be a fail reply.
	ExpectExact
)

func (k ExpectationKind) String() string {
	switch k {
	case ExpectNothing:
		return "nothing"
	case ExpectToken:
		return "success"
	case ExpectExact:
		return "specific"
	default:
		return fmt.Sprintf("ExpectationKind(%d)", int(k))
	}
}

// Expectation pairs an ExpectationKind with its token.
type Expectation struct {
	kind  ExpectationKind
	token string
}

// NoExpectation accepts any non-failure reply.
func NoExpectation() Expectation {
	return Expectation{kind: ExpectNothing}
}

// ExpectSuccess accepts only the given completion token. The token must not be a fail reply.
func ExpectSuccess(token string) Expectation {
	return Expectation{kind: ExpectToken, token: token}
}

// ExpectSpecific accepts only the given token, including fail replies such as "powerOn:fail;".
func ExpectSpecific(token string) Expectation {
	return Expectation{kind: ExpectExact, token: token}
}

// Kind returns the kind of expectation.
func (e Expectation) Kind() ExpectationKind { return e.kind }

// Token returns the expected reply text, empty for NoExpectation.
func (e Expectation) Token() string { return e.token }

// HasToken reports whether a specific reply is awaited.
func (e Expectation) HasToken() bool { return e.kind != ExpectNothing }

func (e Expectation) String() string {
	if !e.HasToken() {
		return e.kind.String()
	}
	return fmt.Sprintf("%s(%q)", e.kind, e.token)
}

func (e Expectation) validate() error {
	if e.kind != ExpectToken {
		return nil
	}

	if r, err := message.Decode(e.token); err == nil && r.IsFailure() {
		return fmt.Errorf("%w: %q", ErrInvalidExpectation, e.token)
	}

	return nil
}
