package validators

import "strings"

// NormalizeSKU upper-cases and trims an article number so lookups match
// regardless of how the register typed it.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// NormalizeCode normalizes a scanned discount or gift card code. Codes pasted
// from mail clients often carry zero-width characters, those are dropped
// before trimming.
func NormalizeCode(code string) string {
	code = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, code)
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeEmail lower-cases and trims an e-mail address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
