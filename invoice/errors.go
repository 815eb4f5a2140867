package invoice

import "fmt"

// CompositionError covers every failure while turning a Record into a document:
// template loading, malformed or length-mismatched fields, drawing and encoding.
type CompositionError struct {
	Op  string // e.g. "template", "line items", "encode"
	Err error
}

func (e *CompositionError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

// Compositionf is a helper to build a *CompositionError with a formatted cause
func Compositionf(op string, format string, args ...any) *CompositionError {
	return &CompositionError{Op: op, Err: fmt.Errorf(format, args...)}
}
