// Package extract turns unstructured upstream text into calendar events.
//
// A single classification pass (Sniff) tags the input with a model.Format;
// the matching Extractor produces candidates, which are finalized and
// deduplicated. Parse never fails and never returns an empty slice.
package extract

import (
	"time"

	"icsconv/internal/datetime"
	appLog "icsconv/internal/log"
	"icsconv/internal/model"
)

const fallbackConfidence = 0.3

// Parser is immutable after construction and safe for concurrent use.
type Parser struct {
	zone     string
	resolver *datetime.Resolver

	extractors map[model.Format]Extractor
}

type options struct {
	zone     string
	now      func() time.Time
	subjects SubjectMatcher
	override map[model.Format]Extractor
}

// Option configures a Parser.
type Option func(*options)

// WithTimezone sets the default zone assigned to events whose source names
// none. Floating dates are interpreted in it as well.
func WithTimezone(name string) Option {
	return func(o *options) { o.zone = name }
}

// WithClock replaces time.Now as the reference instant for relative dates,
// the schedule week and fallback events.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSubjectMatcher replaces the timetable subject strategy.
func WithSubjectMatcher(m SubjectMatcher) Option {
	return func(o *options) { o.subjects = m }
}

// WithExtractor replaces the strategy used for one format.
func WithExtractor(f model.Format, x Extractor) Option {
	return func(o *options) {
		if o.override == nil {
			o.override = make(map[model.Format]Extractor)
		}
		o.override[f] = x
	}
}

// New builds a Parser. Without options it uses model.DefaultTimezone,
// time.Now and the default subject list.
func New(opts ...Option) *Parser {
	o := options{zone: model.DefaultTimezone}
	for _, opt := range opts {
		opt(&o)
	}
	if o.zone == "" {
		o.zone = model.DefaultTimezone
	}
	if _, err := time.LoadLocation(o.zone); err != nil {
		appLog.Error("unknown parser timezone; using default", err, "timezone", o.zone, "default", model.DefaultTimezone)
		o.zone = model.DefaultTimezone
	}
	if o.subjects == nil {
		o.subjects = NewSubjectMatcher()
	}

	e := env{resolver: datetime.NewResolver(datetime.ResolveLocation(o.zone), o.now), zone: o.zone}
	p := &Parser{
		zone:     o.zone,
		resolver: e.resolver,
		extractors: map[model.Format]Extractor{
			model.FormatJSONEvents:          jsonExtractor{env: e},
			model.FormatICalendarProperties: icalExtractor{env: e},
			model.FormatScheduleTable:       scheduleExtractor{env: e, subjects: o.subjects},
			model.FormatNaturalLanguage:     naturalExtractor{env: e, patterns: naturalPatterns},
		},
	}
	for f, x := range o.override {
		p.extractors[f] = x
	}
	return p
}

// Timezone returns the parser's default zone name.
func (p *Parser) Timezone() string { return p.zone }

// Parse extracts events from text.
func (p *Parser) Parse(text string) []model.CalendarEvent {
	events, _ := p.ParseWithFormat(text)
	return events
}

// ParseWithFormat extracts events from text and reports the detected format.
func (p *Parser) ParseWithFormat(text string) ([]model.CalendarEvent, model.Format) {
	doc := Sniff(text)

	candidates := p.extract(doc)
	events := make([]model.CalendarEvent, 0, len(candidates))
	for _, c := range candidates {
		events = append(events, c.Finalize(p.zone))
	}
	events = Dedupe(events)

	if len(events) == 0 {
		events = []model.CalendarEvent{p.fallback(text)}
	}

	appLog.Debug("parse completed", "format", doc.Format.String(), "candidates", len(candidates), "event_count", len(events))
	return events, doc.Format
}

// extract runs the strategy for doc.Format, converting a panic into an
// empty result so the caller still gets the fallback event.
func (p *Parser) extract(doc Sniffed) (out []model.CandidateEvent) {
	x, ok := p.extractors[doc.Format]
	if !ok {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			appLog.Error("extractor panicked", nil, "format", doc.Format.String(), "panic", r)
			out = nil
		}
	}()
	return x.Extract(doc)
}

func (p *Parser) fallback(text string) model.CalendarEvent {
	now := p.resolver.Now()
	return model.CalendarEvent{
		Title:       model.FallbackTitle,
		Description: text,
		Start:       now,
		End:         now.Add(model.DefaultDuration),
		Timezone:    p.zone,
		Confidence:  fallbackConfidence,
	}
}

var defaultParser = New()

// ParseTextForEvents parses text with the default configuration.
func ParseTextForEvents(text string) []model.CalendarEvent {
	return defaultParser.Parse(text)
}
