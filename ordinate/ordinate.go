// Package ordinate implements the totally-ordered position key used
// throughout the evaluation core: the message stream, findMessageBefore,
// checkpoint filenames, and persistence-store pagination all compare
// process positions using the same rule.
package ordinate

import (
	"math/big"
	"strings"
)

// Ordinate is a totally-ordered position within a process's message log.
//
// It is either a pure integer string ("42") or a composite string of the
// form "block:ordinate:hash". Ordinates are compared by treating the
// leading numeric component as a big integer, then falling back to a
// byte-wise comparison of the remaining suffix to break ties between
// values that share the same numeric prefix (e.g. two messages in the same
// block, disambiguated by hash).
type Ordinate string

// Zero is the ordinate of a cold-started process: no messages have been
// applied.
const Zero Ordinate = "0"

// Compare returns -1, 0, or 1 according to whether o is less than, equal
// to, or greater than other.
func (o Ordinate) Compare(other Ordinate) int {
	on, osuf := o.split()
	otn, otsuf := other.split()

	if c := on.Cmp(otn); c != 0 {
		return c
	}

	return strings.Compare(osuf, otsuf)
}

// Before returns true if o sorts strictly before other.
func (o Ordinate) Before(other Ordinate) bool {
	return o.Compare(other) < 0
}

// After returns true if o sorts strictly after other.
func (o Ordinate) After(other Ordinate) bool {
	return o.Compare(other) > 0
}

// String returns o as a string.
func (o Ordinate) String() string {
	return string(o)
}

// split separates the leading numeric component of o from its suffix
// (everything following the first ':', if present).
func (o Ordinate) split() (*big.Int, string) {
	s := string(o)

	head := s
	suffix := ""

	if i := strings.IndexByte(s, ':'); i >= 0 {
		head = s[:i]
		suffix = s[i:]
	}

	n, ok := new(big.Int).SetString(head, 10)
	if !ok {
		// Not a recognizable numeric head at all; treat the whole ordinate
		// as a suffix sorting after every well-formed ordinate.
		return malformedOrdinate, s
	}

	return n, suffix
}

// malformedOrdinate is larger than any numeric head a well-formed ordinate
// can have, so a malformed value always sorts after well-formed ones.
var malformedOrdinate = big.NewInt(0).Lsh(big.NewInt(1), 256)

// Min returns whichever of a and b sorts first.
func Min(a, b Ordinate) Ordinate {
	if a.Before(b) {
		return a
	}
	return b
}

// Max returns whichever of a and b sorts last.
func Max(a, b Ordinate) Ordinate {
	if a.After(b) {
		return a
	}
	return b
}
