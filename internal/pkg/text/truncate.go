package text

import "unicode/utf8"

// Truncate 按字符（rune）截断并追加省略号，不会切断多字节字符。
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
