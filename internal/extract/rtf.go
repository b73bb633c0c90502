package extract

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/huangsam/evidence/schema"
	"golang.org/x/text/encoding/charmap"
)

// rtfSkipDestinations hold no body text.
var rtfSkipDestinations = map[string]struct{}{
	"fonttbl": {}, "colortbl": {}, "stylesheet": {}, "info": {}, "pict": {},
	"header": {}, "footer": {}, "listtable": {}, "listoverridetable": {},
	"themedata": {}, "datastore": {}, "latentstyles": {}, "object": {}, "xmlnstbl": {},
}

func extractRTF(_ context.Context, rec schema.FileRecord) (string, error) {
	data, err := readFile(rec)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(strings.TrimSpace(string(data[:min(len(data), 16)])), `{\rtf`) {
		return "", corrupt(rec, errNotRTF)
	}
	return stripRTF(string(data)), nil
}

var errNotRTF = errors.New(`missing {\rtf header`)

type rtfGroup struct {
	skip   bool
	ucSkip int // characters to drop after a \u escape
}

// stripRTF removes control words and groups, keeping the document text.
func stripRTF(src string) string {
	var b strings.Builder
	stack := []rtfGroup{{ucSkip: 1}}
	pendingSkip := 0
	dec := charmap.Windows1252.NewDecoder()

	top := func() *rtfGroup { return &stack[len(stack)-1] }
	emit := func(s string) {
		if top().skip {
			return
		}
		if pendingSkip > 0 {
			pendingSkip--
			return
		}
		b.WriteString(s)
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			stack = append(stack, *top())
		case '}':
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case '\\':
			if i+1 >= len(src) {
				break
			}
			next := src[i+1]
			switch {
			case next == '\'' && i+3 < len(src):
				if v, err := strconv.ParseUint(src[i+2:i+4], 16, 8); err == nil {
					if out, err := dec.Bytes([]byte{byte(v)}); err == nil {
						emit(string(out))
					}
				}
				i += 3
			case next == '*':
				top().skip = true
				i++
			case next == '\\' || next == '{' || next == '}':
				emit(string(next))
				i++
			case next == '~':
				emit(" ")
				i++
			case next == '\n' || next == '\r':
				emit("\n")
				i++
			case isLetter(next):
				j := i + 1
				for j < len(src) && isLetter(src[j]) {
					j++
				}
				word := src[i+1 : j]
				k := j
				if k < len(src) && (src[k] == '-' || isDigit(src[k])) {
					k++
					for k < len(src) && isDigit(src[k]) {
						k++
					}
				}
				param := src[j:k]
				if k < len(src) && src[k] == ' ' {
					k++ // the delimiter space belongs to the control word
				}
				i = k - 1
				pendingSkip = rtfControl(word, param, top(), pendingSkip, emit)
			default:
				i++
			}
		case '\r', '\n':
		default:
			emit(string(c))
		}
	}
	return b.String()
}

// rtfControl applies one control word and returns the updated skip count.
func rtfControl(word, param string, g *rtfGroup, pendingSkip int, emit func(string)) int {
	if _, ok := rtfSkipDestinations[word]; ok {
		g.skip = true
		return pendingSkip
	}
	switch word {
	case "par", "line", "sect", "page", "row":
		emit("\n")
	case "tab", "cell":
		emit("\t")
	case "emdash", "endash":
		emit("-")
	case "lquote", "rquote":
		emit("'")
	case "ldblquote", "rdblquote":
		emit(`"`)
	case "uc":
		if n, err := strconv.Atoi(param); err == nil {
			g.ucSkip = n
		}
	case "u":
		if n, err := strconv.Atoi(param); err == nil {
			if n < 0 {
				n += 65536
			}
			emit(string(rune(n)))
			return g.ucSkip
		}
	}
	return pendingSkip
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
