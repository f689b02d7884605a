//go:build !debug

package compose

// captureViolation describes a subscription made on goroutine g while
// another goroutine holds open capture scopes (debug only).
func (r *Registry) captureViolation(op string, g uint64) string { return "" }
