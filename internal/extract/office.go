package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/evidence/schema"
	"github.com/xuri/excelize/v2"
)

// maxZipEntryBytes bounds any single decompressed member.
const maxZipEntryBytes = 64 << 20

// xmlText selects which elements carry text and which end a line.
type xmlText struct {
	text   map[string]bool // local names whose character data is kept; nil keeps everything
	breaks map[string]bool // local names that end a line when closed
}

var (
	wordXML   = xmlText{text: set("t", "delText"), breaks: set("p", "br", "tab", "tr")}
	slidesXML = xmlText{text: set("t"), breaks: set("p", "br")}
	odfXML    = xmlText{breaks: set("p", "h", "line-break", "tab", "table-row")}
	musicXML  = xmlText{
		text: set("work-title", "work-number", "movement-title", "creator", "rights", "credit-words",
			"words", "text", "part-name", "instrument-name", "source", "encoder", "software"),
		breaks: set("work", "movement-title", "creator", "rights", "credit", "direction", "lyric", "score-part"),
	}
)

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// openPackage opens a zip-based document. A compound file in its place is a
// password-protected document.
func openPackage(rec schema.FileRecord) (*zip.Reader, error) {
	data, err := readFile(rec)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, oleMagic) {
		return nil, encrypted(rec, "password-protected office document")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, corrupt(rec, err)
	}
	return zr, nil
}

func extractWord(ctx context.Context, rec schema.FileRecord) (string, error) {
	zr, err := openPackage(rec)
	if err != nil {
		return "", err
	}
	parts := []string{"word/document.xml", "word/footnotes.xml", "word/endnotes.xml", "word/comments.xml"}
	return zipText(ctx, rec, zr, parts, wordXML, true)
}

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func extractSlides(ctx context.Context, rec schema.FileRecord) (string, error) {
	zr, err := openPackage(rec)
	if err != nil {
		return "", err
	}
	type slide struct {
		n    int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		if m := slideName.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{n: n, name: f.Name})
		}
	}
	slices.SortFunc(slides, func(a, b slide) int { return a.n - b.n })
	names := make([]string, 0, len(slides))
	for _, s := range slides {
		names = append(names, s.name)
	}
	return zipText(ctx, rec, zr, names, slidesXML, len(names) > 0)
}

// extractSheet reads every worksheet row by row. Sheet names are kept as
// headings and numeric cells are dropped.
func extractSheet(ctx context.Context, rec schema.FileRecord) (string, error) {
	data, err := readFile(rec)
	if err != nil {
		return "", err
	}
	if bytes.HasPrefix(data, oleMagic) {
		return "", encrypted(rec, "password-protected office document")
	}
	wb, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{UnzipSizeLimit: maxZipEntryBytes})
	if err != nil {
		return "", corrupt(rec, err)
	}
	defer func() { _ = wb.Close() }()

	var b strings.Builder
	for _, sheet := range wb.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return b.String(), err
		}
		rows, err := wb.Rows(sheet)
		if err != nil {
			return "", corrupt(rec, fmt.Errorf("%s: %w", sheet, err))
		}
		b.WriteString(sheet)
		b.WriteByte('\n')
		for rows.Next() {
			cells, err := rows.Columns()
			if err != nil {
				_ = rows.Close()
				return "", corrupt(rec, fmt.Errorf("%s: %w", sheet, err))
			}
			if line := sheetLine(cells); line != "" {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
		if err := rows.Close(); err != nil {
			return "", corrupt(rec, fmt.Errorf("%s: %w", sheet, err))
		}
	}
	return b.String(), nil
}

// sheetLine joins the non-numeric cells of one row.
func sheetLine(cells []string) string {
	var kept []string
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, err := strconv.ParseFloat(c, 64); err == nil {
			continue
		}
		kept = append(kept, c)
	}
	return strings.Join(kept, " ")
}

func extractODF(ctx context.Context, rec schema.FileRecord) (string, error) {
	zr, err := openPackage(rec)
	if err != nil {
		return "", err
	}
	return zipText(ctx, rec, zr, []string{"content.xml"}, odfXML, true)
}

func extractMusicXML(ctx context.Context, rec schema.FileRecord) (string, error) {
	if rec.Ext != "mxl" {
		data, err := readFile(rec)
		if err != nil {
			return "", err
		}
		out, err := xmlExtract(ctx, bytes.NewReader(data), musicXML)
		if err != nil {
			return "", corrupt(rec, err)
		}
		return out, nil
	}

	zr, err := openPackage(rec)
	if err != nil {
		return "", err
	}
	root, err := mxlRoot(zr)
	if err != nil {
		return "", corrupt(rec, err)
	}
	return zipText(ctx, rec, zr, []string{root}, musicXML, true)
}

// mxlRoot finds the score inside a compressed MusicXML container.
func mxlRoot(zr *zip.Reader) (string, error) {
	for _, f := range zr.File {
		if f.Name != "META-INF/container.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		var c struct {
			Rootfiles []struct {
				FullPath string `xml:"full-path,attr"`
			} `xml:"rootfiles>rootfile"`
		}
		err = xml.NewDecoder(io.LimitReader(rc, maxZipEntryBytes)).Decode(&c)
		_ = rc.Close()
		if err == nil && len(c.Rootfiles) > 0 && c.Rootfiles[0].FullPath != "" {
			return c.Rootfiles[0].FullPath, nil
		}
	}
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "META-INF/") &&
			(strings.HasSuffix(f.Name, ".musicxml") || strings.HasSuffix(f.Name, ".xml")) {
			return f.Name, nil
		}
	}
	return "", errors.New("no score in container")
}

// zipText concatenates the text of the named members in order. When
// required is set the first member must exist.
func zipText(ctx context.Context, rec schema.FileRecord, zr *zip.Reader, names []string, sel xmlText, required bool) (string, error) {
	byName := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		byName[f.Name] = f
	}
	if required {
		if len(names) == 0 {
			return "", corrupt(rec, errors.New("no text parts"))
		}
		if byName[names[0]] == nil {
			return "", corrupt(rec, fmt.Errorf("missing %s", names[0]))
		}
	}

	var b strings.Builder
	for _, name := range names {
		f := byName[name]
		if f == nil {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", corrupt(rec, fmt.Errorf("%s: %w", name, err))
		}
		text, err := xmlExtract(ctx, io.LimitReader(rc, maxZipEntryBytes), sel)
		_ = rc.Close()
		if err != nil {
			return "", corrupt(rec, fmt.Errorf("%s: %w", name, err))
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// xmlExtract streams tokens, keeping character data of selected elements.
func xmlExtract(ctx context.Context, r io.Reader, sel xmlText) (string, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var b strings.Builder
	var stack []string
	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return b.String(), err
			}
		}
		tok, err := dec.Token()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if sel.breaks[t.Name.Local] {
				b.WriteByte('\n')
			}
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			if sel.text == nil || sel.text[stack[len(stack)-1]] {
				b.Write(t)
			}
		}
	}
}
