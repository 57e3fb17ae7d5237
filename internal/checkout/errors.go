package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition = errors.New("illegal transition of checkout step")
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrStaleSession      = errors.New("checkout session changed concurrently")
	ErrMissingShipping   = errors.New("shipping details not captured")
	ErrReferenceMismatch = errors.New("transaction reference does not match the order")
)

// ValidationError lists field-scoped messages for a rejected shipping form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid shipping details: %s", strings.Join(names, ", "))
}

func transitionError(from, to Step) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}
