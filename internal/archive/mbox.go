// Package archive reads mail (mbox) and calendar (ics) exports one item at a time.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // registers non-UTF-8 charsets
	"github.com/emersion/go-message/mail"
	"github.com/huangsam/evidence/internal/textutil"
)

// ErrMalformedArchive means the archive header is unusable, so no item can be read.
var ErrMalformedArchive = errors.New("malformed archive header")

// ErrItemNotFound means the requested ordinal does not exist in the archive.
var ErrItemNotFound = errors.New("archive item not found")

// Item is one parsed message or calendar component.
type Item struct {
	Index int
	Title string
	When  time.Time
	Text  string
}

// Visit receives each well-formed item in archive order.
type Visit func(Item) error

// Skip receives the ordinal and cause of each malformed item.
type Skip func(index int, err error)

// WalkMbox reads messages sequentially. Every message, well-formed or not,
// consumes one ordinal so indexes are stable across runs.
func WalkMbox(ctx context.Context, r io.Reader, visit Visit, skip Skip) error {
	mr := mbox.NewReader(r)
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		msgReader, err := mr.NextMessage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if index == 0 {
				return fmt.Errorf("%w: %v", ErrMalformedArchive, err)
			}
			return fmt.Errorf("message %d: %w", index, err)
		}

		item, perr := parseMessage(msgReader)
		_, _ = io.Copy(io.Discard, msgReader)
		if perr != nil {
			if skip != nil {
				skip(index, perr)
			}
			continue
		}
		item.Index = index
		if err := visit(item); err != nil {
			return err
		}
	}
}

// FindMboxItem re-reads the archive at path and returns the item with the given ordinal.
func FindMboxItem(ctx context.Context, path string, index int) (Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return Item{}, err
	}
	defer func() { _ = f.Close() }()
	return find(ctx, func(visit Visit, skip Skip) error { return WalkMbox(ctx, f, visit, skip) }, index)
}

// find walks an archive until the item with the given ordinal turns up.
func find(ctx context.Context, walk func(Visit, Skip) error, index int) (Item, error) {
	var found *Item
	var skipped error
	stop := errors.New("stop")
	err := walk(func(it Item) error {
		if it.Index == index {
			found = &it
			return stop
		}
		if it.Index > index {
			return stop
		}
		return nil
	}, func(i int, err error) {
		if i == index {
			skipped = err
		}
	})
	if found != nil {
		return *found, nil
	}
	if skipped != nil {
		return Item{}, skipped
	}
	if err != nil && !errors.Is(err, stop) {
		return Item{}, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Item{}, ctxErr
	}
	return Item{}, fmt.Errorf("%w: #%d", ErrItemNotFound, index)
}

// parseMessage turns one RFC 5322 message into an Item. The text starts with a
// header block (From, Sender, Reply-To, To, Subject) followed by a blank line
// and the decoded body.
func parseMessage(r io.Reader) (Item, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return Item{}, fmt.Errorf("malformed message: %w", err)
	}
	defer func() { _ = mr.Close() }()

	if mr.Header.Get("Date") == "" {
		return Item{}, errors.New("missing Date header")
	}
	when, err := mr.Header.Date()
	if err != nil {
		return Item{}, fmt.Errorf("invalid Date header: %w", err)
	}

	subject, _ := mr.Header.Subject()
	var b strings.Builder
	for _, h := range []string{"From", "Sender", "Reply-To", "To", "Subject"} {
		if v, _ := mr.Header.Text(h); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", h, v)
		}
	}
	b.WriteString("\n")
	b.WriteString(bodyText(mr))

	return Item{Title: subject, When: when, Text: b.String()}, nil
}

// bodyText returns the readable text of the message: inline text/plain parts
// are preferred and text/html parts are used when no plain part exists.
// Attachments are ignored.
func bodyText(mr *mail.Reader) string {
	var plain, htmlText []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			// Keep what was readable so far.
			break
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, _ := h.ContentType()
		if !strings.HasPrefix(mediaType, "text/") {
			continue
		}
		raw, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		text := textutil.Decode(raw, "")
		if mediaType == "text/html" {
			if text, err = textutil.HTMLText(strings.NewReader(text)); err != nil {
				continue
			}
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if mediaType == "text/html" {
			htmlText = append(htmlText, text)
		} else {
			plain = append(plain, text)
		}
	}
	if len(plain) > 0 {
		return strings.Join(plain, "\n")
	}
	return strings.Join(htmlText, "\n")
}
