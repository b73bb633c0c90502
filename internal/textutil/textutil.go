// Package textutil has small text helpers shared by the archive readers and extractors.
package textutil

import (
	"bytes"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	xunicode "golang.org/x/text/encoding/unicode"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// Decode converts raw bytes to a UTF-8 string. A declared charset wins when
// it is known; otherwise a BOM is honored, valid UTF-8 is kept, and anything
// else is read as windows-1252.
func Decode(b []byte, charset string) string {
	if cs := strings.TrimSpace(charset); cs != "" {
		if enc, err := htmlindex.Get(cs); err == nil {
			if s, err := decodeWith(enc, b); err == nil {
				return s
			}
		}
	}

	switch {
	case bytes.HasPrefix(b, utf8BOM):
		return string(b[len(utf8BOM):])
	case bytes.HasPrefix(b, utf16LEBOM), bytes.HasPrefix(b, utf16BEBOM):
		if s, err := decodeWith(xunicode.UTF16(xunicode.LittleEndian, xunicode.UseBOM), b); err == nil {
			return s
		}
	case utf8.Valid(b):
		return string(b)
	}

	s, err := decodeWith(charmap.Windows1252, b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return s
}

func decodeWith(enc encoding.Encoding, b []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// CollapseSpace replaces every run of whitespace with one space and trims the ends.
func CollapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Truncate cuts s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// skipTags never contribute visible text.
var skipTags = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {}, "svg": {},
}

// blockTags end a line of visible text.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "tr": {}, "td": {}, "th": {}, "h1": {}, "h2": {},
	"h3": {}, "h4": {}, "h5": {}, "h6": {}, "title": {}, "section": {}, "article": {}, "table": {},
}

// HTMLText returns the visible text of an HTML document.
func HTMLText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var b strings.Builder
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return b.String(), err
			}
			return b.String(), nil
		case html.StartTagToken:
			name, _ := z.TagName()
			if _, ok := skipTags[string(name)]; ok {
				skipDepth++
			} else if _, ok := blockTags[string(name)]; ok {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if _, ok := skipTags[string(name)]; ok && skipDepth > 0 {
				skipDepth--
			} else if _, ok := blockTags[string(name)]; ok {
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if _, ok := blockTags[string(name)]; ok {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

// PrintableRuns returns runs of printable ASCII of at least minLen bytes,
// plus runs of UTF-16LE encoded ASCII, as found in binary office and
// notation files.
func PrintableRuns(b []byte, minLen int) []string {
	var runs []string
	start := -1
	for i, c := range b {
		if c >= 0x20 && c < 0x7F || c == '\t' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minLen {
			runs = append(runs, string(b[start:i]))
		}
		start = -1
	}
	if start >= 0 && len(b)-start >= minLen {
		runs = append(runs, string(b[start:]))
	}

	var cur []byte
	for i := 0; i+1 < len(b); i += 2 {
		if c := b[i]; b[i+1] == 0 && (c >= 0x20 && c < 0x7F) {
			cur = append(cur, c)
			continue
		}
		if len(cur) >= minLen {
			runs = append(runs, string(cur))
		}
		cur = cur[:0]
	}
	if len(cur) >= minLen {
		runs = append(runs, string(cur))
	}
	return runs
}
