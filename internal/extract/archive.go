package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/evidence/internal/archive"
	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/schema"
)

// archiveExtractor serves mail messages and calendar components from the
// collector's item store and re-reads the archive on a miss.
type archiveExtractor struct {
	items contract.ItemStore
	find  func(ctx context.Context, path string, index int) (archive.Item, error)
}

var (
	findMail     = archive.FindMboxItem
	findCalendar = archive.FindICSItem
)

func (a *archiveExtractor) Extract(ctx context.Context, rec schema.FileRecord) (string, error) {
	if !rec.IsArchiveItem() || rec.Index < 0 {
		return "", contract.NewExtractionError(rec.ID, contract.ReasonUnsupported,
			fmt.Errorf("%s is not an archive item", rec.ID))
	}
	if a.items != nil {
		if text, ok := a.items.Get(rec.ID); ok {
			return text, nil
		}
	}

	it, err := a.find(ctx, rec.Path, rec.Index)
	switch {
	case err == nil:
	case errors.Is(err, archive.ErrItemNotFound), errors.Is(err, archive.ErrMalformedArchive):
		return "", corrupt(rec, err)
	default:
		return "", ioError(rec, err)
	}
	if a.items != nil {
		a.items.Put(rec.ID, it.Text)
	}
	return it.Text, nil
}
