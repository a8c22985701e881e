package export

import (
	"encoding/csv"
	"io"

	"e2gc/internal/model"
)

// csvHeader is the column layout Google Calendar's CSV import expects.
var csvHeader = []string{
	"Subject",
	"Start Date",
	"Start Time",
	"End Date",
	"End Time",
	"All Day Event",
	"Description",
	"Location",
	"Private",
}

const (
	csvDateLayout = "01/02/2006"
	csvTimeLayout = "03:04 PM"
)

// WriteCSV writes one record per event in Google Calendar import layout.
func WriteCSV(w io.Writer, batch model.Batch) error {
	if batch.Empty() {
		return ErrEmptyBatch
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, ev := range batch.Events {
		if err := cw.Write(csvRecord(ev)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRecord(ev model.Event) []string {
	date := ev.Start.Format(csvDateLayout)
	return []string{
		ev.Subject,
		date,
		ev.Start.Format(csvTimeLayout),
		date,
		ev.End.Format(csvTimeLayout),
		"False",
		ev.Description,
		ev.Location,
		boolString(ev.Private),
	}
}

func boolString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
