package uart

import "strings"

// printable is the set of characters rendered as text. It is restricted to
// characters which neither confuse csv parsers nor multibyte decoders.
const printable = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789.+-!$:_ "

// Printable renders a frame value as text.
// Values outside the printable set are rendered as the empty string.
func Printable(value uint32) string {
	if value > 0x7f || !strings.ContainsRune(printable, rune(value)) {
		return ""
	}
	return string(rune(value))
}
