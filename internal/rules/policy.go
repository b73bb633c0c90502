package rules

import (
	"maps"
	"slices"

	"github.com/huangsam/evidence/schema"
)

// ExtensionRule is the policy for one extension.
type ExtensionRule struct {
	Weight  float64
	Handler schema.HandlerTag
	Force   bool // content cannot be pre-judged, so pass 2 always opens it
}

// ExtensionPolicy maps normalized extensions to weights and handler tags,
// and holds the inclusion allow-list for filesystem files.
type ExtensionPolicy struct {
	rules map[string]ExtensionRule
	allow map[string]struct{}
}

// defaultExtensions is the built-in policy. Rules documents may override
// weights, handlers and the allow-list.
var defaultExtensions = map[string]ExtensionRule{
	"txt":  {Weight: 1, Handler: schema.TextHandler},
	"text": {Weight: 1, Handler: schema.TextHandler},
	"csv":  {Weight: 0.5, Handler: schema.TextHandler},
	"tex":  {Weight: 2, Handler: schema.TextHandler},
	"bib":  {Weight: 2, Handler: schema.TextHandler},
	"log":  {Weight: 0, Handler: schema.TextHandler},

	"pdf":  {Weight: 2, Handler: schema.PDFHandler, Force: true},
	"docx": {Weight: 2, Handler: schema.WordHandler},
	"pptx": {Weight: 2, Handler: schema.SlidesHandler},
	"xlsx": {Weight: 1, Handler: schema.SheetHandler},
	"odt":  {Weight: 2, Handler: schema.ODFHandler},
	"odp":  {Weight: 2, Handler: schema.ODFHandler},
	"ods":  {Weight: 1, Handler: schema.ODFHandler},
	"doc":  {Weight: 1, Handler: schema.LegacyHandler},
	"ppt":  {Weight: 1, Handler: schema.LegacyHandler},
	"xls":  {Weight: 0.5, Handler: schema.LegacyHandler},
	"rtf":  {Weight: 1, Handler: schema.RTFHandler},
	"html": {Weight: 1, Handler: schema.HTMLHandler},
	"htm":  {Weight: 1, Handler: schema.HTMLHandler},
	"md":   {Weight: 1, Handler: schema.MarkdownHandler},

	"musicxml": {Weight: 3, Handler: schema.MusicXMLHandler},
	"mxl":      {Weight: 3, Handler: schema.MusicXMLHandler},
	"xml":      {Weight: 0.5, Handler: schema.MusicXMLHandler},

	"sib":  {Weight: 3, Handler: schema.OpaqueHandler, Force: true},
	"musx": {Weight: 3, Handler: schema.OpaqueHandler, Force: true},
	"mus":  {Weight: 3, Handler: schema.OpaqueHandler, Force: true},
	"ftm":  {Weight: 3, Handler: schema.OpaqueHandler, Force: true},
	"ftmx": {Weight: 3, Handler: schema.OpaqueHandler, Force: true},
	"3dj":  {Weight: 3, Handler: schema.OpaqueHandler, Force: true},
	"3dz":  {Weight: 3, Handler: schema.OpaqueHandler, Force: true},
	"3da":  {Weight: 3, Handler: schema.OpaqueHandler, Force: true},
	"prod": {Weight: 3, Handler: schema.OpaqueHandler, Force: true},
	"mid":  {Weight: 1, Handler: schema.OpaqueHandler, Force: true},
	"midi": {Weight: 1, Handler: schema.OpaqueHandler, Force: true},

	schema.MailItemExt:     {Weight: 1, Handler: schema.MailHandler, Force: true},
	schema.CalendarItemExt: {Weight: 1, Handler: schema.CalendarHandler, Force: true},
}

// archiveExts are synthetic and never part of the filesystem allow-list.
var archiveExts = map[string]struct{}{
	schema.MailItemExt:     {},
	schema.CalendarItemExt: {},
}

// DefaultPolicy returns the built-in extension policy with every known
// filesystem extension allowed.
func DefaultPolicy() *ExtensionPolicy {
	p := &ExtensionPolicy{rules: maps.Clone(defaultExtensions), allow: map[string]struct{}{}}
	for ext := range p.rules {
		if _, ok := archiveExts[ext]; !ok {
			p.allow[ext] = struct{}{}
		}
	}
	return p
}

// Lookup returns the rule for an extension.
func (p *ExtensionPolicy) Lookup(ext string) (ExtensionRule, bool) {
	r, ok := p.rules[schema.NormalizeExt(ext)]
	return r, ok
}

// Handler returns the handler tag for an extension, or "" if none is registered.
func (p *ExtensionPolicy) Handler(ext string) schema.HandlerTag {
	return p.rules[schema.NormalizeExt(ext)].Handler
}

// Allowed reports whether a filesystem file with this extension is collected.
func (p *ExtensionPolicy) Allowed(ext string) bool {
	_, ok := p.allow[schema.NormalizeExt(ext)]
	return ok
}

// Extensions returns the sorted allow-list.
func (p *ExtensionPolicy) Extensions() []string {
	return slices.Sorted(maps.Keys(p.allow))
}

// WithAllowList returns a copy of the policy whose allow-list is exactly exts.
func (p *ExtensionPolicy) WithAllowList(exts []string) *ExtensionPolicy {
	clone := &ExtensionPolicy{rules: p.rules, allow: make(map[string]struct{}, len(exts))}
	for _, ext := range exts {
		if norm := schema.NormalizeExt(ext); norm != "" {
			clone.allow[norm] = struct{}{}
		}
	}
	return clone
}
