package game

import "fmt"

// RuleError is a validation or precondition failure caused by an illegal
// intent. The message is safe to show to the offending client; nothing has
// been mutated when one is returned.
type RuleError struct {
	Msg string
}

func (e *RuleError) Error() string {
	return e.Msg
}

// NewRuleError wraps a client-safe message in a RuleError.
func NewRuleError(msg string) *RuleError {
	return &RuleError{Msg: msg}
}

// ruleErrorf builds a RuleError with fmt semantics
func ruleErrorf(format string, args ...interface{}) *RuleError {
	return &RuleError{Msg: fmt.Sprintf(format, args...)}
}
