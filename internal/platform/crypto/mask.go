package crypto

import "strings"

// Mask renders a partial, non-reversible view of a secret for display. It
// reveals at most the first min(4, len/4) characters and masks the rest,
// preserving overall length. Display only; never used for comparisons.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	runes := []rune(secret)
	visible := len(runes) / 4
	if visible > 4 {
		visible = 4
	}
	return string(runes[:visible]) + strings.Repeat("*", len(runes)-visible)
}
