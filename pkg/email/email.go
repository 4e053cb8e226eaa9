// Package email provides helpers for working with email addresses.
package email

import (
	"strings"
	"unicode"
)

// DeriveDisplayName builds a readable name from the local part of an address.
// Used for notification greetings when no contact name is on file.
//
//	DeriveDisplayName("jane.doe@example.com") // "Jane Doe"
func DeriveDisplayName(addr string) string {
	localPart := addr
	if at := strings.IndexByte(addr, '@'); at > 0 {
		localPart = addr[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Customer"
	}

	for i, part := range parts {
		parts[i] = capitalize(part)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
