package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/internal/iocache"
	"github.com/huangsam/evidence/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func record(t *testing.T, name string, data []byte) schema.FileRecord {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return schema.FileRecord{
		ID:        path,
		Path:      path,
		Index:     -1,
		SizeBytes: int64(len(data)),
		Source:    schema.FilesSource,
		Ext:       schema.NormalizeExt(filepath.Ext(name)),
	}
}

func zipBytes(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// workbookBytes builds a two-sheet workbook with text and numeric cells.
func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetSheetName("Sheet1", "Grades"))
	require.NoError(t, f.SetCellValue("Grades", "A1", "Final grades"))
	require.NoError(t, f.SetCellValue("Grades", "B1", "Rubric"))
	require.NoError(t, f.SetCellValue("Grades", "A2", "Exam 1"))
	require.NoError(t, f.SetCellValue("Grades", "B2", 42))
	_, err := f.NewSheet("Committee")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Committee", "A1", "Service log"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func extract(t *testing.T, rec schema.FileRecord) (string, error) {
	t.Helper()
	return NewRegistry(nil, Options{}).Extract(context.Background(), rec)
}

func requireReason(t *testing.T, err error, want contract.ExtractionReason) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, contract.ReasonOf(err), "error: %v", err)
}

func TestExtractFormats(t *testing.T) {
	docx := zipBytes(t, map[string]string{
		"word/document.xml": `<?xml version="1.0"?><w:document xmlns:w="x"><w:body>` +
			`<w:p><w:r><w:t>Course</w:t></w:r><w:r><w:t xml:space="preserve"> syllabus</w:t></w:r></w:p>` +
			`<w:p><w:r><w:instrText>HYPERLINK</w:instrText><w:t>Learning outcomes</w:t></w:r></w:p></w:body></w:document>`,
		"word/footnotes.xml": `<w:footnotes xmlns:w="x"><w:footnote><w:p><w:r><w:t>peer reviewed</w:t></w:r></w:p></w:footnote></w:footnotes>`,
	})
	pptx := zipBytes(t, map[string]string{
		"ppt/slides/slide10.xml": `<p:sld xmlns:p="p" xmlns:a="a"><a:p><a:r><a:t>Tenth</a:t></a:r></a:p></p:sld>`,
		"ppt/slides/slide2.xml":  `<p:sld xmlns:p="p" xmlns:a="a"><a:p><a:r><a:t>Second</a:t></a:r></a:p></p:sld>`,
	})
	xlsx := workbookBytes(t)
	odt := zipBytes(t, map[string]string{
		"content.xml": `<office:document-content xmlns:office="o" xmlns:text="t"><office:body><office:text>` +
			`<text:h>Research statement</text:h><text:p>Composition <text:span>premiere</text:span></text:p></office:text></office:body></office:document-content>`,
	})
	mxl := zipBytes(t, map[string]string{
		"META-INF/container.xml": `<container><rootfiles><rootfile full-path="score.musicxml"/></rootfiles></container>`,
		"score.musicxml":         `<score-partwise><work><work-title>Marching Band Drill</work-title></work><part-list><score-part><part-name>Trumpet</part-name></score-part></part-list><part><measure><note><pitch><step>C</step></pitch></note></measure></part></score-partwise>`,
	})

	tests := []struct {
		name     string
		file     string
		data     []byte
		contains []string
		excludes []string
	}{
		{name: "text", file: "notes.txt", data: []byte("Syllabus for fall"), contains: []string{"Syllabus for fall"}},
		{name: "text windows-1252", file: "old.txt", data: []byte("r\xe9sum\xe9"), contains: []string{"résumé"}},
		{
			name: "docx", file: "syllabus.docx", data: docx,
			contains: []string{"Course syllabus", "Learning outcomes", "peer reviewed"},
			excludes: []string{"HYPERLINK"},
		},
		{name: "pptx order", file: "lecture.pptx", data: pptx, contains: []string{"Second\n\nTenth"}},
		{name: "xlsx", file: "grades.xlsx", data: xlsx, contains: []string{"Grades\nFinal grades Rubric\nExam 1\n", "Committee\nService log"}, excludes: []string{"42"}},
		{name: "odt", file: "statement.odt", data: odt, contains: []string{"Research statement", "Composition premiere"}},
		{
			name: "html", file: "page.html",
			data:     []byte(`<html><head><meta charset="iso-8859-1"><script>var syllabus;</script></head><body><p>Caf` + "\xe9" + ` committee</p></body></html>`),
			contains: []string{"Café committee"},
			excludes: []string{"var syllabus"},
		},
		{
			name: "markdown", file: "README.md",
			data:     []byte("# Teaching Philosophy\n\nI use *active* learning.\n\n```\ncode sample\n```\n\n<https://example.edu>\n"),
			contains: []string{"Teaching Philosophy", "I use active learning.", "code sample", "https://example.edu"},
			excludes: []string{"#", "*", "```"},
		},
		{
			name: "rtf", file: "letter.rtf",
			data:     []byte(`{\rtf1\ansi{\fonttbl{\f0 Times;}}{\*\generator Word;}\f0 Dear committee,\par Tenure r\'e9view \u8212? done\line end}`),
			contains: []string{"Dear committee,\nTenure réview — done\nend"},
			excludes: []string{"Times", "Word", "?"},
		},
		{
			name: "legacy doc", file: "old.doc",
			data:     append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0}, []byte("\x00\x01Curriculum vitae\x00\x02")...),
			contains: []string{"Curriculum vitae"},
		},
		{
			name: "opaque", file: "Sonata_No2-final.musx",
			data:     []byte("\x00\x01\x02Premiere Performance\x00\xff"),
			contains: []string{"sonata no2 final\n", "Premiere Performance"},
		},
		{
			name: "musicxml", file: "drill.musicxml",
			data:     []byte(`<?xml version="1.0"?><score-partwise><work><work-title>Fanfare</work-title></work><identification><creator type="composer">J. Doe</creator></identification><part><measure><note><pitch><step>G</step></pitch></note></measure></part></score-partwise>`),
			contains: []string{"Fanfare", "J. Doe"},
			excludes: []string{"G"},
		},
		{name: "mxl", file: "drill.mxl", data: mxl, contains: []string{"Marching Band Drill", "Trumpet"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := extract(t, record(t, tt.file, tt.data))
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
			for _, not := range tt.excludes {
				assert.NotContains(t, text, not)
			}
		})
	}
}

func TestExtractFailures(t *testing.T) {
	ole := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 64)...)
	encryptedDoc := append(append([]byte{}, ole...), []byte("E\x00n\x00c\x00r\x00y\x00p\x00t\x00i\x00o\x00n\x00I\x00n\x00f\x00o\x00")...)

	tests := []struct {
		name string
		file string
		data []byte
		want contract.ExtractionReason
	}{
		{name: "encrypted pdf", file: "locked.pdf", data: []byte("%PDF-1.6\n1 0 obj\n<<>>\nendobj\ntrailer\n<< /Root 1 0 R /Encrypt 5 0 R >>\n%%EOF\n"), want: contract.ReasonEncrypted},
		{name: "not a pdf", file: "fake.pdf", data: []byte("hello"), want: contract.ReasonCorrupt},
		{name: "broken pdf", file: "broken.pdf", data: []byte("%PDF-1.4\ngarbage"), want: contract.ReasonCorrupt},
		{name: "encrypted docx", file: "locked.docx", data: ole, want: contract.ReasonEncrypted},
		{name: "encrypted doc", file: "locked.doc", data: encryptedDoc, want: contract.ReasonEncrypted},
		{name: "encrypted xlsx", file: "locked.xlsx", data: ole, want: contract.ReasonEncrypted},
		{name: "corrupt xlsx", file: "bad.xlsx", data: []byte("PK not really"), want: contract.ReasonCorrupt},
		{name: "corrupt docx", file: "bad.docx", data: []byte("PK not really"), want: contract.ReasonCorrupt},
		{name: "docx without body", file: "empty.docx", data: zipBytes(t, map[string]string{"x.xml": "<x/>"}), want: contract.ReasonCorrupt},
		{name: "not rtf", file: "bad.rtf", data: []byte("plain"), want: contract.ReasonCorrupt},
		{name: "unsupported", file: "clip.mov", data: []byte("x"), want: contract.ReasonUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extract(t, record(t, tt.file, tt.data))
			requireReason(t, err, tt.want)
		})
	}
}

func TestExtractMissingFile(t *testing.T) {
	rec := schema.FileRecord{ID: "/nope/x.txt", Path: "/nope/x.txt", Ext: "txt", Index: -1}
	_, err := extract(t, rec)
	requireReason(t, err, contract.ReasonIO)
}

func TestRegistryTimeout(t *testing.T) {
	r := NewRegistry(nil, Options{Timeout: 20 * time.Millisecond})
	r.Register(schema.TextHandler, contract.ExtractorFunc(func(ctx context.Context, _ schema.FileRecord) (string, error) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return "late", nil
	}))
	_, err := r.Extract(context.Background(), schema.FileRecord{ID: "slow.txt", Ext: "txt"})
	requireReason(t, err, contract.ReasonTimeout)
}

func TestRegistryIgnoresCallerCancellation(t *testing.T) {
	r := NewRegistry(nil, Options{Timeout: time.Second})
	r.Register(schema.TextHandler, contract.ExtractorFunc(func(ctx context.Context, _ schema.FileRecord) (string, error) {
		time.Sleep(20 * time.Millisecond)
		return "finished", ctx.Err()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	text, err := r.Extract(ctx, schema.FileRecord{ID: "a.txt", Ext: "txt"})
	require.NoError(t, err)
	assert.Equal(t, "finished", text)
}

func TestRegistryRecoversPanics(t *testing.T) {
	r := NewRegistry(nil, Options{})
	r.Register(schema.TextHandler, contract.ExtractorFunc(func(context.Context, schema.FileRecord) (string, error) {
		panic("bad xref table")
	}))
	_, err := r.Extract(context.Background(), schema.FileRecord{ID: "a.txt", Ext: "txt"})
	requireReason(t, err, contract.ReasonCorrupt)
	assert.ErrorContains(t, err, "bad xref table")
}

func TestRegistryTruncates(t *testing.T) {
	r := NewRegistry(nil, Options{MaxTextBytes: 10})
	text, err := r.Extract(context.Background(), record(t, "long.txt", []byte(strings.Repeat("syllabus ", 10))))
	require.NoError(t, err)
	assert.Equal(t, "syllabus s", text)
}

func TestRegistryUntypedErrorsBecomeCorrupt(t *testing.T) {
	r := NewRegistry(nil, Options{})
	r.Register(schema.TextHandler, contract.ExtractorFunc(func(context.Context, schema.FileRecord) (string, error) {
		return "", assert.AnError
	}))
	_, err := r.Extract(context.Background(), schema.FileRecord{ID: "a.txt", Ext: "txt"})
	requireReason(t, err, contract.ReasonCorrupt)
	assert.ErrorIs(t, err, assert.AnError)
}

const mailbox = `From a@example.edu Mon Mar  3 10:00:00 2025
From: a@example.edu
Subject: Tenure dossier
Date: Mon, 03 Mar 2025 10:00:00 +0000

Dossier attached for the committee.
`

func TestMailFromItemStore(t *testing.T) {
	items := &iocache.MockItemStore{}
	items.On("Get", "inbox.mbox#0").Return("cached text", true)

	r := NewRegistry(nil, Options{Items: items})
	text, err := r.Extract(context.Background(), schema.FileRecord{
		ID: "inbox.mbox#0", Path: "inbox.mbox", Index: 0, Source: schema.MboxSource, Ext: schema.MailItemExt,
	})
	require.NoError(t, err)
	assert.Equal(t, "cached text", text)
	items.AssertExpectations(t)
}

func TestMailReparsedOnMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.mbox")
	require.NoError(t, os.WriteFile(path, []byte(mailbox), 0o644))
	id := path + "#0"

	items := &iocache.MockItemStore{}
	items.On("Get", id).Return("", false)
	items.On("Put", id, mock.AnythingOfType("string")).Return()

	r := NewRegistry(nil, Options{Items: items})
	rec := schema.FileRecord{ID: id, Path: path, Index: 0, Source: schema.MboxSource, Ext: schema.MailItemExt}
	text, err := r.Extract(context.Background(), rec)
	require.NoError(t, err)
	assert.Contains(t, text, "Dossier attached")
	items.AssertExpectations(t)

	rec.Index, rec.ID = 4, path+"#4"
	items.On("Get", rec.ID).Return("", false)
	_, err = r.Extract(context.Background(), rec)
	requireReason(t, err, contract.ReasonCorrupt)
}

func TestCalendarWithoutStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.ics")
	require.NoError(t, os.WriteFile(path, []byte("BEGIN:VCALENDAR\nBEGIN:VEVENT\nDTSTART:20250101\nSUMMARY:Faculty senate\nEND:VEVENT\nEND:VCALENDAR\n"), 0o644))

	text, err := extract(t, schema.FileRecord{
		ID: path + "#0", Path: path, Index: 0, Source: schema.ICSSource, Ext: schema.CalendarItemExt,
	})
	require.NoError(t, err)
	assert.Contains(t, text, "summary: Faculty senate")
}

func TestFilenameProxy(t *testing.T) {
	assert.Equal(t, "sonata no2 final", filenameProxy("/x/Sonata_No2-final.musx"))
	assert.Equal(t, "halftime show v3", filenameProxy("Halftime.Show__v3.3dj"))
}
