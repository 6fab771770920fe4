package finguard

import (
	"strings"
	"unicode"
)

const maxSymbolLength = 5

// Single capital letters that read as English words rather than tickers.
var nonTickerWords = map[string]struct{}{
	"I": {},
	"A": {},
}

// ExtractSymbol returns the first maximal run of 1-5 uppercase Latin letters
// bounded by non-letters. Lowercase and mixed-case words never match, neither
// do all-caps words longer than five letters.
func ExtractSymbol(text string) (string, bool) {
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if !unicode.IsLetter(runes[i]) {
			i++
			continue
		}
		start := i
		for i < len(runes) && unicode.IsLetter(runes[i]) {
			i++
		}
		word := string(runes[start:i])
		if !isTickerShape(word) {
			continue
		}
		if _, skip := nonTickerWords[word]; skip {
			continue
		}
		return word, true
	}
	return "", false
}

// NormalizeSymbol trims and uppercases direct user input and validates its shape.
func NormalizeSymbol(input string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(input))
	if !isTickerShape(symbol) {
		return "", WrapError(ErrCodeInvalidInput, "symbol must be 1-5 letters", ErrInvalidSymbol)
	}
	return symbol, nil
}

func isTickerShape(s string) bool {
	if len(s) == 0 || len(s) > maxSymbolLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
