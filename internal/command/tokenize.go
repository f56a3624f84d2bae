package command

import (
	"strings"
	"unicode"
)

// Tokenize splits line on whitespace. Single quotes preserve their content
// literally; double quotes allow backslash escapes; adjacent quoted and
// unquoted parts join into one token.
func Tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inToken bool
		quote   rune
		escaped bool
		start   int
	)

	for i, r := range line {
		if !inToken && !unicode.IsSpace(r) {
			start = i
		}
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case quote == '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				cur.WriteRune(r)
			}
		case r == '\\':
			escaped = true
			inToken = true
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}

	if quote != 0 {
		return nil, &ParseError{
			Kind:     UnterminatedQuote,
			Token:    line[start:],
			Position: len(tokens),
			Expected: "closing quote",
		}
	}
	if escaped {
		cur.WriteRune('\\')
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}
