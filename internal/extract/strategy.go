package extract

import (
	"time"

	"icsconv/internal/datetime"
	"icsconv/internal/model"
)

// Extractor produces candidate events for one input format. A single bad
// line, element or date never aborts extraction; it is skipped.
type Extractor interface {
	Extract(doc Sniffed) []model.CandidateEvent
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(doc Sniffed) []model.CandidateEvent

func (f ExtractorFunc) Extract(doc Sniffed) []model.CandidateEvent { return f(doc) }

// env is the shared, read-only context every strategy works against.
type env struct {
	resolver *datetime.Resolver
	zone     string
}

func (e env) loc() *time.Location { return e.resolver.Location() }

// placeholder builds the per-format fallback emitted by structured
// strategies when every element was dropped.
func (e env) placeholder(description, origin string) model.CandidateEvent {
	now := e.resolver.Now()
	return model.CandidateEvent{
		CalendarEvent: model.CalendarEvent{
			Title:       model.DefaultTitle,
			Description: description,
			Start:       now,
			End:         now.Add(model.DefaultDuration),
			Timezone:    e.zone,
			Confidence:  fallbackConfidence,
		},
		Origin: origin,
	}
}
