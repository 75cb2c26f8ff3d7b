package law

// Span is a half-open byte range into the input text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered.
func (s Span) Len() int { return s.End - s.Start }

// Record is a resolved law element, or a statute when Type is
// ElementStatute and ElementID is zero.
type Record struct {
	Type      ElementType
	Number    string
	StatuteID string
	ElementID int64
	Title     string
}

// StatuteLevel reports whether the record identifies a statute only.
func (r Record) StatuteLevel() bool {
	return r.ElementID == 0
}

// Precision describes how precisely a link was resolved.
type Precision string

const (
	// PrecisionElement means every resolvable fragment was matched.
	PrecisionElement Precision = "element"
	// PrecisionStatute means only the statute could be identified.
	PrecisionStatute Precision = "statute"
)

// Resource identifies the law a link points to.
type Resource struct {
	Title     string `json:"title"`
	StatuteID string `json:"bwb_id"`
	ElementID int64  `json:"bwb_label_id,omitempty"`
}

// Context locates the citation in the input.
type Context struct {
	Span    Span   `json:"span"`
	Literal string `json:"literal"`
}

// Link is a single extracted reference.
type Link struct {
	Resource  Resource  `json:"resource"`
	Fragment  Fragments `json:"fragment"`
	Context   Context   `json:"context"`
	Precision Precision `json:"precision"`
}

// NewLink builds a link from a resolved record and the fragments and
// location of the citation it came from.
func NewLink(rec Record, fragments Fragments, span Span, literal string) Link {
	precision := PrecisionElement
	if rec.StatuteLevel() {
		precision = PrecisionStatute
	}
	if fragments == nil {
		fragments = Fragments{}
	}
	return Link{
		Resource: Resource{
			Title:     rec.Title,
			StatuteID: rec.StatuteID,
			ElementID: rec.ElementID,
		},
		Fragment:  fragments.Sorted(),
		Context:   Context{Span: span, Literal: literal},
		Precision: precision,
	}
}
