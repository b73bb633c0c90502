package schema

// Custom string types for type safety.
type (
	// Source represents where a FileRecord came from.
	Source string

	// RunMode represents which passes an invocation executes.
	RunMode string

	// HandlerTag selects the content extractor for a format.
	HandlerTag string

	// Confidence represents how trustworthy an effort estimate is.
	Confidence string

	// EffortMethod represents how an effort estimate was derived.
	EffortMethod string

	// RunState represents a state of the orchestrator state machine.
	RunState string

	// WarningKind represents the class of a non-fatal problem.
	WarningKind string
)

// All sources supported.
const (
	FilesSource Source = "files" // default
	MboxSource  Source = "mbox"
	ICSSource   Source = "ics"
)

// All run modes supported.
const (
	TriageMode RunMode = "triage" // metadata only, ends in AwaitingSelection
	FullMode   RunMode = "full"   // classic single invocation
	ResumeMode RunMode = "resume" // pass 2 from a snapshot
)

// All handler tags supported.
const (
	TextHandler     HandlerTag = "text"
	PDFHandler      HandlerTag = "pdf"
	WordHandler     HandlerTag = "word"
	SlidesHandler   HandlerTag = "slides"
	SheetHandler    HandlerTag = "sheet"
	ODFHandler      HandlerTag = "odf"
	LegacyHandler   HandlerTag = "legacy"
	RTFHandler      HandlerTag = "rtf"
	HTMLHandler     HandlerTag = "html"
	MarkdownHandler HandlerTag = "markdown"
	MusicXMLHandler HandlerTag = "musicxml"
	OpaqueHandler   HandlerTag = "opaque"
	MailHandler     HandlerTag = "mail"
	CalendarHandler HandlerTag = "calendar"
)

// All confidence levels supported.
const (
	HighConfidence   Confidence = "high"
	MediumConfidence Confidence = "medium"
	LowConfidence    Confidence = "low"
)

// All effort methods supported.
const (
	SessionMethod EffortMethod = "sessions"
	FlatMethod    EffortMethod = "flat"
)

// All orchestrator states.
const (
	IdleState              RunState = "idle"
	CollectingPathsState   RunState = "collecting_paths"
	TriageState            RunState = "triage"
	AwaitingSelectionState RunState = "awaiting_selection"
	ExtractingState        RunState = "extracting"
	AggregatingState       RunState = "aggregating"
	DoneState              RunState = "done"
)

// All warning kinds.
const (
	PathWarning       WarningKind = "path"
	ExtractionWarning WarningKind = "extraction"
	ArchiveWarning    WarningKind = "archive"
)

// MiscCategory is the triage guess for candidates that match no category.
const MiscCategory = "misc"

// Synthetic extensions given to archive items so the extension policy can route them.
const (
	MailItemExt     = "eml"
	CalendarItemExt = "ics"
)

// ValidHandlerTags lists all valid handler tags.
var ValidHandlerTags = map[HandlerTag]struct{}{
	TextHandler:     {},
	PDFHandler:      {},
	WordHandler:     {},
	SlidesHandler:   {},
	SheetHandler:    {},
	ODFHandler:      {},
	LegacyHandler:   {},
	RTFHandler:      {},
	HTMLHandler:     {},
	MarkdownHandler: {},
	MusicXMLHandler: {},
	OpaqueHandler:   {},
	MailHandler:     {},
	CalendarHandler: {},
}
