// Package export serializes events to a validated .ics artifact and hands
// it to a delivery mechanism (directory, writer, HTTP response).
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"icsconv/internal/ics"
	appLog "icsconv/internal/log"
	"icsconv/internal/model"
)

// MIMEType is the content type of every artifact.
const MIMEType = "text/calendar; charset=utf-8"

const (
	msgNoEvents       = "No events to download"
	msgInvalid        = "Generated calendar content is invalid"
	msgDeliveryFailed = "Failed to export calendar file. Please try again."
)

var (
	ErrNoEvents        = errors.New("export: no events")
	ErrInvalidCalendar = errors.New("export: generated calendar failed validation")
)

// Artifact is one file offered to the user.
type Artifact struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Deliverer offers an artifact to the user. It either completes or fails
// once; there is no retry.
type Deliverer interface {
	Deliver(ctx context.Context, a Artifact) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, a Artifact) error

func (f DelivererFunc) Deliver(ctx context.Context, a Artifact) error { return f(ctx, a) }

// Result is the user-facing outcome of Export. Err carries the underlying
// cause for callers that map failures to status codes; it is never shown.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`

	Err error `json:"-"`
}

// Exporter wires serialization, validation, naming and delivery.
type Exporter struct {
	Encoder   ics.Encoder
	Deliverer Deliverer

	// Validate defaults to ics.Validate.
	Validate func(text string) bool
	Now      func() time.Time
}

// New returns an Exporter emitting prodID. strict selects
// ics.ValidateStrict over the structural check.
func New(prodID string, strict bool, d Deliverer) *Exporter {
	x := &Exporter{Encoder: ics.Encoder{ProdID: prodID}, Deliverer: d}
	if strict {
		x.Validate = ics.ValidateStrict
	}
	return x
}

// Export never panics; every failure becomes a Result with Success=false.
// An empty filename is derived from the events.
func (x *Exporter) Export(ctx context.Context, events []model.CalendarEvent, filename string) (res Result) {
	if len(events) == 0 {
		return Result{Message: msgNoEvents, Err: ErrNoEvents}
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("export panicked: %v", r)
			appLog.Error("export failed", err, "event_count", len(events))
			res = Result{Message: msgDeliveryFailed, Err: err}
		}
	}()

	text := x.Encoder.Encode(events)

	validate := x.Validate
	if validate == nil {
		validate = ics.Validate
	}
	if !validate(text) {
		appLog.Error("export failed", ErrInvalidCalendar, "event_count", len(events))
		return Result{Message: msgInvalid, Err: ErrInvalidCalendar}
	}

	if filename == "" {
		now := time.Now()
		if x.Now != nil {
			now = x.Now()
		}
		filename = ics.DeriveFilename(events, now)
	}

	if x.Deliverer == nil {
		err := errors.New("export: no deliverer configured")
		appLog.Error("export failed", err)
		return Result{Message: msgDeliveryFailed, Filename: filename, Err: err}
	}

	a := Artifact{Filename: filename, MIMEType: MIMEType, Data: []byte(text)}
	if err := x.Deliverer.Deliver(ctx, a); err != nil {
		appLog.Error("export delivery failed", err, "filename", filename)
		return Result{Message: msgDeliveryFailed, Filename: filename, Err: err}
	}

	appLog.Info("export completed", "filename", filename, "event_count", len(events), "bytes", len(a.Data))
	return Result{Success: true, Message: successMessage(len(events)), Filename: filename}
}

func successMessage(n int) string {
	if n == 1 {
		return "Downloaded 1 event successfully"
	}
	return fmt.Sprintf("Downloaded %d events successfully", n)
}
