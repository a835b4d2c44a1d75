package preview

import "time"

// StoryStatus is the publication state assigned by the authoring flow.
type StoryStatus string

// Known publication states. Only approved stories are served.
const (
	StatusApproved StoryStatus = "approved"
	StatusPending  StoryStatus = "pending"
	StatusRejected StoryStatus = "rejected"
	StatusDraft    StoryStatus = "draft"
)

// Story is the content record held by the document store.
type Story struct {
	ID       string      `json:"id" yaml:"id"`
	Slug     string      `json:"slug" yaml:"slug"`
	Status   StoryStatus `json:"status" yaml:"status"`
	Title    string      `json:"title,omitempty" yaml:"title"`
	Excerpt  string      `json:"excerpt,omitempty" yaml:"excerpt"`
	Content  string      `json:"content,omitempty" yaml:"content"`
	CoverURL string      `json:"coverUrl,omitempty" yaml:"coverUrl"`
	Views    int64       `json:"views" yaml:"views"`
}

// Request is one preview lookup as seen by the Resolver.
type Request struct {
	Slug    string
	Crawler bool
}

// RenderContext is the per-request state assembled while resolving a slug.
type RenderContext struct {
	Slug         string
	IsCrawler    bool
	Record       *Story
	CanonicalURL string
}

// Preview carries the derived, display-ready fields handed to the template.
type Preview struct {
	Title        string
	Description  string
	Image        string
	CanonicalURL string
	SiteName     string
}

// OutcomeKind enumerates the answers a Resolver can give.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeInvalidRequest OutcomeKind = iota + 1
	OutcomeNotFound
	OutcomeRedirect
	OutcomeRendered
	OutcomeInternalFailure
)

// String returns a stable label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeInvalidRequest:
		return "invalid_request"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeRendered:
		return "rendered"
	case OutcomeInternalFailure:
		return "internal_failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of Resolve. Location is set for redirects, HTML for
// rendered documents, and Err for invalid requests and internal failures.
type Outcome struct {
	Kind     OutcomeKind
	Location string
	HTML     []byte
	Err      error
}

// Audience labels who a view was served to.
type Audience string

// Audiences.
const (
	AudienceCrawler Audience = "crawler"
	AudienceHuman   Audience = "human"
)

// AudienceOf maps a classification result to its Audience label.
func AudienceOf(crawler bool) Audience {
	if crawler {
		return AudienceCrawler
	}
	return AudienceHuman
}

// ViewEvent is published after a view has been counted.
type ViewEvent struct {
	ID       string    `json:"id"`
	StoryID  string    `json:"story_id"`
	Slug     string    `json:"slug"`
	Audience Audience  `json:"audience"`
	ServedAt time.Time `json:"served_at"`
}
