//go:build debug

package compose

import "fmt"

// captureViolation describes a subscription made on goroutine g while
// another goroutine holds open capture scopes (debug only). Called with r.mu
// held.
func (r *Registry) captureViolation(op string, g uint64) string {
	return fmt.Sprintf(
		"compose: contract violation: %s on goroutine %d while a capture scope is open on goroutine %d; "+
			"create components from a single execution context",
		op,
		g,
		r.holder,
	)
}
