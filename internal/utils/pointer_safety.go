// Package utils holds small pointer helpers.
package utils

// Ptr returns a pointer to v. Handy for optional struct fields.
func Ptr[T any](v T) *T {
	return &v
}
