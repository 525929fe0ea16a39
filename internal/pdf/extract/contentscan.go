package extract

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"
)

// kerning adjustments inside a TJ array at or below this value read as a
// word space
const tjSpaceThreshold = -250

// contentText pulls the string operands of the text-showing operators out of
// a decoded content stream. Fonts are not consulted, so only simple byte
// encodings come out readable.
func contentText(data []byte) string {
	var (
		out     strings.Builder
		line    strings.Builder
		pending []string
		inArray bool
	)
	endLine := func() {
		if t := strings.TrimSpace(line.String()); t != "" {
			out.WriteString(t)
			out.WriteByte('\n')
		}
		line.Reset()
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			s, n := readLiteral(data[i:])
			pending = append(pending, s)
			i += n
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			s, n := readHex(data[i:])
			if s != "" {
				pending = append(pending, s)
			}
			i += n
		case c == '[':
			inArray = true
			i++
		case c == ']':
			inArray = false
			i++
		case c == '/':
			i += tokenLen(data[i+1:]) + 1
		default:
			n := tokenLen(data[i:])
			if n == 0 {
				i++
				continue
			}
			tok := string(data[i : i+n])
			i += n

			if v, err := strconv.ParseFloat(tok, 64); err == nil {
				if inArray && v <= tjSpaceThreshold && len(pending) > 0 {
					pending = append(pending, " ")
				}
				continue
			}

			switch tok {
			case "Tj", "TJ":
				line.WriteString(strings.Join(pending, ""))
			case "'", "\"":
				endLine()
				line.WriteString(strings.Join(pending, ""))
			case "BT", "ET", "T*", "Td", "TD", "Tm":
				endLine()
			case "ID":
				i = skipInlineImage(data, i)
			}
			pending = pending[:0]
		}
	}
	endLine()
	return out.String()
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func tokenLen(data []byte) int {
	n := 0
	for n < len(data) && !isSpace(data[n]) && !isDelimiter(data[n]) {
		n++
	}
	return n
}

// readLiteral decodes a parenthesised string starting at data[0] and returns
// it with the number of bytes consumed.
func readLiteral(data []byte) (string, int) {
	var b strings.Builder
	depth := 0
	i := 0
	for ; i < len(data); i++ {
		c := data[i]
		switch c {
		case '(':
			depth++
			if depth == 1 {
				continue
			}
		case ')':
			depth--
			if depth == 0 {
				return printable(b.String()), i + 1
			}
		case '\\':
			i++
			if i >= len(data) {
				break
			}
			switch e := data[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\r', '\n':
				// line continuation
				if e == '\r' && i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; k++ {
						i++
						v = v*8 + int(data[i]-'0')
					}
					b.WriteRune(rune(byte(v)))
				} else {
					b.WriteByte(e)
				}
			}
			continue
		}
		b.WriteRune(rune(c))
	}
	return printable(b.String()), i
}

// readHex decodes a <...> string. Hex strings usually hold glyph ids, so
// anything that is not plain printable ASCII is dropped.
func readHex(data []byte) (string, int) {
	end := bytes.IndexByte(data, '>')
	if end < 0 {
		return "", len(data)
	}
	var digits []byte
	for _, c := range data[1:end] {
		if !isSpace(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	var b strings.Builder
	for k := 0; k+1 < len(digits); k += 2 {
		v, err := strconv.ParseUint(string(digits[k:k+2]), 16, 8)
		if err != nil || v < 0x20 || v > 0x7e {
			return "", end + 1
		}
		b.WriteByte(byte(v))
	}
	return b.String(), end + 1
}

func skipInlineImage(data []byte, i int) int {
	for j := i; j+2 < len(data); j++ {
		if isSpace(data[j]) && data[j+1] == 'E' && data[j+2] == 'I' &&
			(j+3 == len(data) || isSpace(data[j+3])) {
			return j + 3
		}
	}
	return len(data)
}

func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == ' ' {
			return r
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return -1
	}, s)
}
