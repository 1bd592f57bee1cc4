package loyalty

import (
	"regexp"
	"strings"
)

// =============================================================================
// IDENTITY NORMALIZER - Canonical national-ID lookup key
// =============================================================================

// IDDigits is the width the numeric part of a national ID is padded to.
const IDDigits = 7

var nationalIDPattern = regexp.MustCompile(`^([0-9]+)([A-Z]?)$`)

// NormalizeID canonicalizes a national ID card number into a client key.
//
// The input is trimmed and uppercased. A value shaped like digits plus an
// optional single letter gets its digit run left-padded with zeros to
// IDDigits, so "789M" and "0000789M" are the same client. Longer digit runs
// are kept as they are. Anything else is returned trimmed and uppercased.
//
// NormalizeID never fails and is idempotent.
func NormalizeID(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	m := nationalIDPattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	digits, letter := m[1], m[2]
	if pad := IDDigits - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	return digits + letter
}

// NormalizeClientID is NormalizeID typed as a ClientID.
func NormalizeClientID(raw string) ClientID {
	return ClientID(NormalizeID(raw))
}
