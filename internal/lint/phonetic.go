package lint

import "strings"

// soundexCode maps a letter to its Soundex digit, or 0 for letters that
// are dropped (vowels, h, w, y).
func soundexCode(r rune) byte {
	switch r {
	case 'b', 'f', 'p', 'v':
		return '1'
	case 'c', 'g', 'j', 'k', 'q', 's', 'x', 'z':
		return '2'
	case 'd', 't':
		return '3'
	case 'l':
		return '4'
	case 'm', 'n':
		return '5'
	case 'r':
		return '6'
	default:
		return 0
	}
}

// Soundex returns the classic four-character Soundex code for word,
// used as the phonetic tie-break between equally distant suggestions.
// Non-ASCII-letter runes are ignored; an empty input yields "".
func Soundex(word string) string {
	word = strings.ToLower(word)

	var first rune
	for _, r := range word {
		if r >= 'a' && r <= 'z' {
			first = r
			break
		}
	}
	if first == 0 {
		return ""
	}

	code := make([]byte, 0, 4)
	code = append(code, byte(first-'a'+'A'))

	prev := soundexCode(first)
	seenFirst := false
	for _, r := range word {
		if r < 'a' || r > 'z' {
			continue
		}
		if !seenFirst {
			seenFirst = true
			continue
		}

		d := soundexCode(r)
		switch {
		case d == 0:
			// h and w do not break a run of identical codes;
			// vowels and y do.
			if r != 'h' && r != 'w' {
				prev = 0
			}
		case d != prev:
			code = append(code, d)
			prev = d
		}
		if len(code) == 4 {
			break
		}
	}

	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}
