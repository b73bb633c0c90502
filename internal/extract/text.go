package extract

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/evidence/internal/textutil"
	"github.com/huangsam/evidence/schema"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html/charset"
)

// Scan limits for binary formats.
const (
	opaqueScanBytes = 64 << 10
	opaqueMinRun    = 6
	legacyMinRun    = 4
)

func extractText(_ context.Context, rec schema.FileRecord) (string, error) {
	data, err := readFile(rec)
	if err != nil {
		return "", err
	}
	return textutil.Decode(data, ""), nil
}

func extractHTML(_ context.Context, rec schema.FileRecord) (string, error) {
	f, err := os.Open(rec.Path)
	if err != nil {
		return "", ioError(rec, err)
	}
	defer func() { _ = f.Close() }()

	// Honors a BOM or <meta charset> before tokenizing.
	r, err := charset.NewReader(f, "text/html")
	if err != nil {
		return "", corrupt(rec, err)
	}
	out, err := textutil.HTMLText(r)
	if err != nil {
		return "", corrupt(rec, err)
	}
	return out, nil
}

var markdown = goldmark.New()

func extractMarkdown(_ context.Context, rec schema.FileRecord) (string, error) {
	src, err := readFile(rec)
	if err != nil {
		return "", err
	}
	doc := markdown.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(src))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := range lines.Len() {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", corrupt(rec, err)
	}
	return b.String(), nil
}

func extractLegacy(_ context.Context, rec schema.FileRecord) (string, error) {
	data, err := readFile(rec)
	if err != nil {
		return "", err
	}
	if isOLEEncrypted(data) {
		return "", encrypted(rec, "password-protected compound document")
	}
	return strings.Join(textutil.PrintableRuns(data, legacyMinRun), "\n"), nil
}

// extractOpaque returns the filename as a text proxy followed by any readable
// strings near the start of the file. Proprietary notation formats rarely
// expose more than titles and credits this way.
func extractOpaque(_ context.Context, rec schema.FileRecord) (string, error) {
	name := filenameProxy(rec.Path)
	f, err := os.Open(rec.Path)
	if err != nil {
		return "", ioError(rec, err)
	}
	defer func() { _ = f.Close() }()

	head, err := io.ReadAll(io.LimitReader(f, opaqueScanBytes))
	if err != nil {
		return "", ioError(rec, err)
	}
	runs := textutil.PrintableRuns(head, opaqueMinRun)
	return name + "\n" + strings.Join(runs, "\n"), nil
}

// filenameProxy turns "Sonata_No2-final.musx" into "sonata no2 final".
func filenameProxy(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.':
			return ' '
		}
		return r
	}, base)
	return strings.ToLower(textutil.CollapseSpace(base))
}

// oleMagic starts every compound file; in an OOXML or ODF slot it means the
// document was saved with a password.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// isOLEEncrypted recognizes the EncryptionInfo stream name of a protected legacy document.
func isOLEEncrypted(data []byte) bool {
	if !bytes.HasPrefix(data, oleMagic) {
		return false
	}
	return bytes.Contains(data, utf16LE("EncryptionInfo")) || bytes.Contains(data, utf16LE("EncryptedPackage"))
}

func utf16LE(s string) []byte {
	out := make([]byte, 0, 2*len(s))
	for i := range len(s) {
		out = append(out, s[i], 0)
	}
	return out
}
