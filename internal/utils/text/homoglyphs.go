package text

import "strings"

// Cyrillic letters that render like Latin ones, a cheap spam evasion trick
// ("са$h" with Cyrillic с and а slips past a naive substring match).
var homoglyphs = map[rune]rune{
	'а': 'a',
	'в': 'b',
	'е': 'e',
	'ё': 'e',
	'к': 'k',
	'м': 'm',
	'н': 'h',
	'о': 'o',
	'р': 'p',
	'с': 'c',
	'т': 't',
	'у': 'y',
	'х': 'x',
	'і': 'i',
	'ѕ': 's',
	'ј': 'j',
}

// FoldHomoglyphs maps Cyrillic lookalike letters to their Latin twins so
// that keyword rules keep matching disguised content. Everything else passes
// through untouched.
func FoldHomoglyphs(content string) string {
	if !strings.ContainsFunc(content, func(r rune) bool {
		_, ok := homoglyphs[r]
		return ok
	}) {
		return content
	}
	return strings.Map(func(r rune) rune {
		if folded, ok := homoglyphs[r]; ok {
			return folded
		}
		return r
	}, content)
}
