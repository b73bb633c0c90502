package extract

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/huangsam/evidence/schema"
	"github.com/ledongthuc/pdf"
)

var (
	pdfMagic   = []byte("%PDF-")
	pdfEncrypt = []byte("/Encrypt")
)

func extractPDF(_ context.Context, rec schema.FileRecord) (string, error) {
	data, err := readFile(rec)
	if err != nil {
		return "", err
	}
	if !bytes.Contains(data[:min(len(data), 1024)], pdfMagic) {
		return "", corrupt(rec, errors.New("missing %PDF header"))
	}
	// Files with an encryption dictionary are reported, not decrypted.
	if bytes.Contains(data, pdfEncrypt) {
		return "", encrypted(rec, "pdf has an /Encrypt dictionary")
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", corrupt(rec, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", corrupt(rec, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", corrupt(rec, err)
	}
	return buf.String(), nil
}
