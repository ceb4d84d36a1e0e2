// Package internal provides low-level text helpers for the vCard codec.
package internal

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// FoldLine splits a logical line into physical lines no longer than 75
// UTF-16 code units each, inserting a newline followed by a single space
// as the continuation marker (RFC 2426 section 2.6). A cut point never
// splits a surrogate pair or a backslash escape sequence.
func FoldLine(line string) string {
	u := utf16.Encode([]rune(line))

	var sb strings.Builder
	for len(u) > 75 {
		l := 75

		// don't split a surrogate pair
		if isHighSurrogate(u[l-1]) {
			l--
		}

		// count the backslashes that would end up at the end of the
		// segment; an odd run means the cut would split an escape
		// sequence, so back off one more unit
		count := 0
		for a := l - 1; a >= 0; a-- {
			if u[a] != '\\' {
				break
			}
			count++
		}
		if count%2 == 1 {
			l--
		}

		sb.WriteString(string(utf16.Decode(u[:l])))
		sb.WriteString("\n ")
		u = u[l:]
	}
	sb.WriteString(string(utf16.Decode(u)))

	return sb.String()
}

func isHighSurrogate(u uint16) bool {
	return u >= 0xd800 && u < 0xdc00
}

// UnfoldLine removes the continuation markers inserted by FoldLine.
func UnfoldLine(line string) string {
	return strings.ReplaceAll(line, "\n ", "")
}

// EscapeValue escapes a property value: newlines become the two
// character sequence \n, and each of comma, semicolon and backslash is
// prefixed with a backslash.
func EscapeValue(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\n':
			sb.WriteString(`\n`)
		case ',', ';', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// UnescapeValue is the inverse of EscapeValue. \n and \N produce a
// newline, \t and \T a tab (non-standard, but accepted), and escaped
// backslashes, commas and semicolons produce the literal character.
// Unknown escape sequences pass through with the backslash retained.
func UnescapeValue(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inEscape := false
	for _, r := range s {
		if !inEscape {
			if r == '\\' {
				inEscape = true
			} else {
				sb.WriteRune(r)
			}
			continue
		}

		inEscape = false
		switch r {
		case 'T', 't':
			sb.WriteByte('\t')
		case 'N', 'n':
			sb.WriteByte('\n')
		case '\\', ',', ';':
			sb.WriteRune(r)
		default:
			sb.WriteByte('\\')
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// EndsInEscape reports whether s ends in an unescaped backslash, i.e.
// whether the run of backslashes at the end of s has odd length.
func EndsInEscape(s string) bool {
	count := 0
	for a := len(s) - 1; a >= 0; a-- {
		if s[a] != '\\' {
			break
		}
		count++
	}
	return count%2 == 1
}

// SplitEscaped splits value on the separator char, honouring backslash
// escapes: a part ending in an unescaped backslash is joined to the
// part that follows it. Parts are trimmed of surrounding whitespace and
// trailing empty parts are dropped.
func SplitEscaped(value string, sep byte) []string {
	parts := strings.Split(value, string(sep))
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}

	for a := 0; a < len(parts); {
		// ignore the final part: an escape char at the very end of the
		// value is a multi-line continuation, handled by the caller
		if a < len(parts)-1 && EndsInEscape(parts[a]) {
			parts[a] = parts[a][:len(parts[a])-1] + string(sep) + parts[a+1]
			parts = append(parts[:a+1], parts[a+2:]...)
			continue
		}
		parts[a] = strings.TrimSpace(parts[a])
		a++
	}

	return parts
}

// DecodeQuotedPrintable decodes quoted-printable content as per RFC
// 1521 section 5.1. The second return value reports whether the line
// ended in a soft line break (a trailing =), meaning decoding continues
// on the next physical line; no literal = is emitted for it.
func DecodeQuotedPrintable(in []byte) ([]byte, bool) {
	out := make([]byte, 0, len(in))
	more := false
	for i := 0; i < len(in); i++ {
		ch := in[i]
		switch {
		case ch == '=' && i < len(in)-2:
			out = append(out, byte(hexDigit(in[i+1])*16+hexDigit(in[i+2])))
			i += 2
		case ch == '=' && i == len(in)-1:
			more = true
		default:
			out = append(out, ch)
		}
	}
	return out, more
}

func hexDigit(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return -1
}

// TranscodeASCIIToUTF8 converts legacy "8-bit US-ASCII" vCard content
// to UTF-8. Bytes with the high bit set are treated as Latin-1 single
// byte characters, not as UTF-8 sequences. This is a compatibility shim
// for pre-Unicode vCard producers, not real charset detection.
func TranscodeASCIIToUTF8(in []byte) []byte {
	out, _ := charmap.ISO8859_1.NewDecoder().Bytes(in)
	return out
}
