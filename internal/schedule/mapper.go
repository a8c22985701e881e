// Package schedule turns German class-schedule rows into calendar events.
package schedule

import (
	"errors"
	"fmt"
	"strings"

	appLog "e2gc/internal/log"
	"e2gc/internal/model"
	"e2gc/internal/source"
)

// Skip reasons.
const (
	ReasonMissingColumn   = "missing column"
	ReasonDateUnparseable = "date unparseable"
	ReasonTimeUnparseable = "time unparseable"
	ReasonEmptySubject    = "module empty"
	ReasonUnexpected      = "unexpected failure"
)

// SkipError explains why a row produced no event.
type SkipError struct {
	Row    int
	Reason string
	Column string
	Value  string
	Err    error
}

func (e *SkipError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "row %d: %s", e.Row, e.Reason)
	if e.Column != "" {
		fmt.Fprintf(&b, " (%s", e.Column)
		if e.Value != "" {
			fmt.Fprintf(&b, "=%q", e.Value)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// Skip converts the error into the record kept on a batch.
func (e *SkipError) Skip() model.Skip {
	reason := e.Reason
	if e.Err != nil {
		reason += ": " + e.Err.Error()
	}
	return model.Skip{Row: e.Row, Reason: reason, Column: e.Column, Value: e.Value}
}

// Columns names the spreadsheet columns the mapper reads.
type Columns struct {
	Date       string
	Time       string
	Module     string
	Instructor string
	// Description is optional. When empty, the first unnamed header column
	// is used, if the table has one.
	Description string
}

// DefaultColumns returns the column names used by the schedule exports.
func DefaultColumns() Columns {
	return Columns{
		Date:       "Datum",
		Time:       "Zeit",
		Module:     "Modul",
		Instructor: "Dozierender",
	}
}

// Mapper converts rows to events. It never aborts on a bad row.
type Mapper struct {
	cols     Columns
	reporter appLog.Reporter
}

// NewMapper creates a Mapper. A nil reporter discards all reports.
func NewMapper(cols Columns, reporter appLog.Reporter) *Mapper {
	if reporter == nil {
		reporter = appLog.Discard
	}
	return &Mapper{cols: cols, reporter: reporter}
}

// ForTable resolves the description column against the table header.
func (m *Mapper) ForTable(t source.Table) *Mapper {
	if m.cols.Description != "" {
		return m
	}
	col, ok := t.FirstUnnamed()
	if !ok {
		return m
	}
	cp := *m
	cp.cols.Description = col
	return &cp
}

// MapRow converts one row. On failure the error is a *SkipError.
func (m *Mapper) MapRow(row source.Row) (ev model.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &SkipError{Row: row.Number, Reason: ReasonUnexpected, Err: fmt.Errorf("%v", r)}
		}
	}()

	for _, col := range []string{m.cols.Date, m.cols.Time, m.cols.Module} {
		if _, ok := row.Get(col); !ok {
			return model.Event{}, &SkipError{Row: row.Number, Reason: ReasonMissingColumn, Column: col}
		}
	}

	rawDate, _ := row.Get(m.cols.Date)
	day, ok := ParseDate(rawDate)
	if !ok {
		return model.Event{}, &SkipError{Row: row.Number, Reason: ReasonDateUnparseable, Column: m.cols.Date, Value: rawDate}
	}

	rawTime, _ := row.Get(m.cols.Time)
	start, end, ok := ParseTimeRange(rawTime)
	if !ok {
		return model.Event{}, &SkipError{Row: row.Number, Reason: ReasonTimeUnparseable, Column: m.cols.Time, Value: rawTime}
	}

	module, _ := row.Get(m.cols.Module)
	subject := strings.TrimSpace(module)
	if subject == "" {
		return model.Event{}, &SkipError{Row: row.Number, Reason: ReasonEmptySubject, Column: m.cols.Module}
	}
	if instructor := m.optional(row, m.cols.Instructor); instructor != "" {
		subject += " - " + instructor
	}

	return model.Event{
		Row:         row.Number,
		Subject:     subject,
		Description: m.optional(row, m.cols.Description),
		Start:       start.On(day),
		End:         end.On(day),
	}, nil
}

// convertRow maps and reports one row. A panic anywhere in between turns
// into a ReasonUnexpected skip.
func (m *Mapper) convertRow(row source.Row, parsed, skipped int) (ev model.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			ev = model.Event{}
			err = &SkipError{Row: row.Number, Reason: ReasonUnexpected, Err: fmt.Errorf("%v", r)}
		}
	}()

	ev, err = m.MapRow(row)
	if err != nil {
		return model.Event{}, err
	}
	m.reporter.Report(appLog.LevelDebug, "row converted",
		"row", row.Number,
		"subject", ev.Subject,
		"parsed", parsed+1,
		"skipped", skipped,
	)
	return ev, nil
}

// optional returns the trimmed cell of an optional column, or "" when the
// column is unset, absent, or blank.
func (m *Mapper) optional(row source.Row, col string) string {
	if col == "" {
		return ""
	}
	v, _ := row.Get(col)
	return strings.TrimSpace(v)
}

// Build maps all rows in order, collecting events and skips.
func (m *Mapper) Build(rows []source.Row) model.Batch {
	var batch model.Batch

	for _, row := range rows {
		ev, err := m.convertRow(row, len(batch.Events), batch.Skipped)
		if err != nil {
			batch.Skipped++
			var skip *SkipError
			if errors.As(err, &skip) {
				batch.Skips = append(batch.Skips, skip.Skip())
				m.reporter.Report(appLog.LevelWarn, "row skipped",
					"row", skip.Row,
					"reason", skip.Reason,
					"column", skip.Column,
					"value", skip.Value,
					"err", skip.Err,
				)
			} else {
				batch.Skips = append(batch.Skips, model.Skip{Row: row.Number, Reason: err.Error()})
				m.reporter.Report(appLog.LevelWarn, "row skipped", "row", row.Number, "reason", err.Error())
			}
			continue
		}
		batch.Events = append(batch.Events, ev)
	}

	m.reporter.Report(appLog.LevelInfo, "conversion finished",
		"rows", len(rows),
		"events", len(batch.Events),
		"skipped", batch.Skipped,
	)
	return batch
}
