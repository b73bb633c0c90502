// Package extract turns records into plain text. Handlers are chosen only by
// the handler tag the extension policy assigns; content is never sniffed to
// pick a handler.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/internal/rules"
	"github.com/huangsam/evidence/internal/textutil"
	"github.com/huangsam/evidence/schema"
)

// Options configure a Registry.
type Options struct {
	Timeout      time.Duration      // per-record ceiling, zero uses contract.DefaultTimeout
	MaxTextBytes int                // extracted text is cut to this size, zero uses contract.DefaultMaxTextBytes
	Items        contract.ItemStore // archive item text cached by the collector, may be nil
}

// Registry maps handler tags to extractors and enforces the per-record
// timeout, panic recovery and text ceiling around every call.
type Registry struct {
	policy   *rules.ExtensionPolicy
	handlers map[schema.HandlerTag]contract.Extractor
	opts     Options
}

var _ contract.Extractor = &Registry{} // Compile-time check

// NewRegistry returns a registry with every built-in handler registered.
func NewRegistry(policy *rules.ExtensionPolicy, opts Options) *Registry {
	if policy == nil {
		policy = rules.DefaultPolicy()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = contract.DefaultTimeout
	}
	if opts.MaxTextBytes <= 0 {
		opts.MaxTextBytes = contract.DefaultMaxTextBytes
	}
	r := &Registry{policy: policy, handlers: map[schema.HandlerTag]contract.Extractor{}, opts: opts}

	r.Register(schema.TextHandler, contract.ExtractorFunc(extractText))
	r.Register(schema.PDFHandler, contract.ExtractorFunc(extractPDF))
	r.Register(schema.WordHandler, contract.ExtractorFunc(extractWord))
	r.Register(schema.SlidesHandler, contract.ExtractorFunc(extractSlides))
	r.Register(schema.SheetHandler, contract.ExtractorFunc(extractSheet))
	r.Register(schema.ODFHandler, contract.ExtractorFunc(extractODF))
	r.Register(schema.LegacyHandler, contract.ExtractorFunc(extractLegacy))
	r.Register(schema.RTFHandler, contract.ExtractorFunc(extractRTF))
	r.Register(schema.HTMLHandler, contract.ExtractorFunc(extractHTML))
	r.Register(schema.MarkdownHandler, contract.ExtractorFunc(extractMarkdown))
	r.Register(schema.MusicXMLHandler, contract.ExtractorFunc(extractMusicXML))
	r.Register(schema.OpaqueHandler, contract.ExtractorFunc(extractOpaque))
	r.Register(schema.MailHandler, &archiveExtractor{items: opts.Items, find: findMail})
	r.Register(schema.CalendarHandler, &archiveExtractor{items: opts.Items, find: findCalendar})
	return r
}

// Register installs or replaces the extractor for a tag.
func (r *Registry) Register(tag schema.HandlerTag, ex contract.Extractor) {
	r.handlers[tag] = ex
}

// Handler returns the tag that would handle rec.
func (r *Registry) Handler(rec schema.FileRecord) schema.HandlerTag {
	return r.policy.Handler(rec.Ext)
}

type result struct {
	text string
	err  error
}

// Extract runs the handler for rec. Cancelling ctx does not interrupt an
// extraction that has already started; only the per-record timeout does.
func (r *Registry) Extract(ctx context.Context, rec schema.FileRecord) (string, error) {
	tag := r.Handler(rec)
	ex, ok := r.handlers[tag]
	if !ok {
		return "", contract.NewExtractionError(rec.ID, contract.ReasonUnsupported,
			fmt.Errorf("no handler for extension %q", rec.Ext))
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.Timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: contract.NewExtractionError(rec.ID, contract.ReasonCorrupt,
					fmt.Errorf("handler %s panicked: %v", tag, p))}
			}
		}()
		text, err := ex.Extract(runCtx, rec)
		done <- result{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", asExtractionError(rec.ID, res.err)
		}
		return textutil.Truncate(res.text, r.opts.MaxTextBytes), nil
	case <-runCtx.Done():
		return "", contract.NewExtractionError(rec.ID, contract.ReasonTimeout,
			fmt.Errorf("exceeded %s", r.opts.Timeout))
	}
}

// asExtractionError makes sure every failure leaving the registry is typed.
func asExtractionError(id string, err error) error {
	var ee *contract.ExtractionError
	if errors.As(err, &ee) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return contract.NewExtractionError(id, contract.ReasonTimeout, err)
	}
	return contract.NewExtractionError(id, contract.ReasonCorrupt, err)
}

// readFile reads a record's file, mapping filesystem failures to ReasonIO.
func readFile(rec schema.FileRecord) ([]byte, error) {
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return nil, ioError(rec, err)
	}
	return data, nil
}

func ioError(rec schema.FileRecord, err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return contract.NewExtractionError(rec.ID, contract.ReasonIO, err)
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return contract.NewExtractionError(rec.ID, contract.ReasonIO, err)
	}
	return contract.NewExtractionError(rec.ID, contract.ReasonCorrupt, err)
}

func corrupt(rec schema.FileRecord, err error) error {
	return contract.NewExtractionError(rec.ID, contract.ReasonCorrupt, err)
}

func encrypted(rec schema.FileRecord, why string) error {
	return contract.NewExtractionError(rec.ID, contract.ReasonEncrypted, errors.New(why))
}
