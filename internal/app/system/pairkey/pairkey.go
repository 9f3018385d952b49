// Package pairkey derives deterministic document ids for relationships
// between two users.
//
// Symmetric keys (connections, chat threads) do not depend on argument
// order, so concurrent creators on either side converge on the same
// document. Directed keys (connection requests) keep the order.
package pairkey

import (
	"errors"
	"strings"
)

// Sep joins the two ids in a key.
const Sep = "_"

// ErrInvalidID is returned by Check for ids that cannot be part of a key.
var ErrInvalidID = errors.New("id must be non-empty and must not contain " + Sep)

// Check rejects ids that would make keys ambiguous: Pair("a_b", "c") and
// Pair("a", "b_c") are the same string, so no id may contain Sep.
func Check(ids ...string) error {
	for _, id := range ids {
		if id == "" || strings.Contains(id, Sep) {
			return ErrInvalidID
		}
	}
	return nil
}

// Pair returns the order-independent key for a and b: the two ids sorted
// lexicographically and joined with Sep.
func Pair(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + Sep + b
}

// Directed returns the key for a relationship that points from one user to
// another.
func Directed(from, to string) string {
	return from + Sep + to
}

// Contains reports whether id is one of the two sides of a Pair key built
// from ids that do not themselves contain Sep.
func Contains(key, id string) bool {
	a, b, ok := strings.Cut(key, Sep)
	if !ok {
		return false
	}
	return a == id || b == id
}
