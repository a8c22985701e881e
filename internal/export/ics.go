package export

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"e2gc/internal/model"
)

const (
	DefaultProductID = "-//e2gc//Stundenplan Export//DE"

	// floatingLayout is a DATE-TIME without zone: local time wherever the
	// calendar is opened.
	floatingLayout = "20060102T150405"
)

// uidNamespace seeds the name-based UUIDs used as event UIDs, so that
// re-exporting the same schedule yields the same UIDs.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("e2gc"))

// ICSOptions controls calendar-level metadata.
type ICSOptions struct {
	// ProductID defaults to DefaultProductID.
	ProductID string
	// CalendarName is written as X-WR-CALNAME when set.
	CalendarName string
	// Now supplies DTSTAMP. Defaults to time.Now.
	Now func() time.Time
}

// WriteICS writes one VEVENT per event.
func WriteICS(w io.Writer, batch model.Batch, opts ICSOptions) error {
	if batch.Empty() {
		return ErrEmptyBatch
	}
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cal := ical.NewCalendar()
	cal.SetVersion("2.0")
	cal.SetProductId(opts.ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	if opts.CalendarName != "" {
		cal.SetXWRCalName(opts.CalendarName)
	}

	stamp := opts.Now()
	for _, ev := range batch.Events {
		ve := cal.AddEvent(EventUID(ev))
		ve.SetDtStampTime(stamp)
		ve.SetProperty(ical.ComponentPropertyDtStart, ev.Start.Format(floatingLayout))
		ve.SetProperty(ical.ComponentPropertyDtEnd, ev.End.Format(floatingLayout))
		ve.SetSummary(ev.Subject)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
	}

	// RFC 5545 lines end in CRLF regardless of platform.
	return cal.SerializeTo(w, ical.WithNewLineWindows)
}

// EventUID derives a stable UID from the event's row, subject and start.
func EventUID(ev model.Event) string {
	name := fmt.Sprintf("%d|%s|%s", ev.Row, ev.Subject, ev.Start.Format(floatingLayout))
	return uuid.NewSHA1(uidNamespace, []byte(name)).String() + "@e2gc"
}
