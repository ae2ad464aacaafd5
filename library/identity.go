package library

import "regexp"

// dniPattern matches 8 digits followed by one letter from the
// 23-letter control alphabet (I, O and U are excluded). The letter's
// checksum value is not verified against the digits.
var dniPattern = regexp.MustCompile(`^[0-9]{8}[A-HJ-NP-TV-Z]$`)

// ValidDNI reports whether s has the shape of a DNI.
func ValidDNI(s string) bool { return dniPattern.MatchString(s) }
