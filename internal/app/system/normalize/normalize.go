// Package normalize canonicalizes user-supplied strings before they are
// stored or compared.
package normalize

import "strings"

// Name trims and collapses runs of whitespace. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ID trims an identifier taken from a URL or request body.
func ID(s string) string {
	return strings.TrimSpace(s)
}

// Text trims surrounding whitespace from free text, keeping interior
// newlines and spacing as written.
func Text(s string) string {
	return strings.TrimSpace(s)
}
