package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"e2gc/internal/export"
	"e2gc/internal/model"
)

// promptFormat asks until the answer is a known format. EOF aborts.
func promptFormat(in io.Reader, out io.Writer) (export.Format, error) {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintln(out, "Ausgabeformat wählen:")
		fmt.Fprintln(out, "  1) Google Calendar CSV")
		fmt.Fprintln(out, "  2) iCalendar (.ics)")
		fmt.Fprint(out, "Auswahl [1/2]: ")

		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", errors.New("no format selected")
		}
		f, err := export.ParseFormat(sc.Text())
		if err == nil {
			return f, nil
		}
		fmt.Fprintln(out, "Ungültige Eingabe, bitte 1 oder 2 eingeben.")
	}
}

// writePreview prints the first n events as an aligned table.
func writePreview(w io.Writer, batch model.Batch, n int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Subject\tDate\tStart\tEnd\tDescription")
	for i, ev := range batch.Events {
		if i == n {
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			ev.Subject,
			ev.Start.Format("02.01.2006"),
			ev.Start.Format("15:04"),
			ev.End.Format("15:04"),
			ev.Description,
		)
	}
	return tw.Flush()
}
