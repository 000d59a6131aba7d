package shell

import (
	"errors"
	"strings"
	"unicode"
)

// Tokenize errors.
var (
	// ErrUnterminatedQuote indicates a command with an unclosed quote.
	ErrUnterminatedQuote = errors.New("unterminated quote")
	// ErrTrailingEscape indicates a command ending in a bare backslash.
	ErrTrailingEscape = errors.New("trailing escape")
)

// Tokenize splits a command line into tokens with shell-style quoting:
// single quotes are literal, double quotes allow backslash escapes of
// the quote and the backslash, and a backslash outside quotes escapes
// the next character. A blank line yields no tokens.
func Tokenize(command string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, current.String())
			current.Reset()
			inToken = false
		}
	}

	runes := []rune(command)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'':
			inToken = true
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == '\'' {
					end = j
					break
				}
			}
			if end < 0 {
				return nil, ErrUnterminatedQuote
			}
			current.WriteString(string(runes[i+1 : end]))
			i = end

		case r == '"':
			inToken = true
			closed := false
			for j := i + 1; j < len(runes); j++ {
				c := runes[j]
				if c == '\\' && j+1 < len(runes) && (runes[j+1] == '"' || runes[j+1] == '\\') {
					current.WriteRune(runes[j+1])
					j++
					i = j
					continue
				}
				if c == '"' {
					closed = true
					i = j
					break
				}
				current.WriteRune(c)
				i = j
			}
			if !closed {
				return nil, ErrUnterminatedQuote
			}

		case r == '\\':
			if i+1 >= len(runes) {
				return nil, ErrTrailingEscape
			}
			inToken = true
			current.WriteRune(runes[i+1])
			i++

		case unicode.IsSpace(r):
			flush()

		default:
			inToken = true
			current.WriteRune(r)
		}
	}
	flush()

	return tokens, nil
}
