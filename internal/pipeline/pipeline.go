// Package pipeline wires source reading, row mapping and batching.
package pipeline

import (
	"fmt"

	"e2gc/internal/config"
	appLog "e2gc/internal/log"
	"e2gc/internal/model"
	"e2gc/internal/schedule"
	"e2gc/internal/source"
)

// Columns converts the configured column names for the mapper.
func Columns(c config.ColumnsConfig) schedule.Columns {
	return schedule.Columns{
		Date:        c.Date,
		Time:        c.Time,
		Module:      c.Module,
		Instructor:  c.Instructor,
		Description: c.Description,
	}
}

// Convert reads path and maps every row. Only reading the file can fail;
// row problems end up as skips on the batch.
func Convert(path string, cols schedule.Columns, reporter appLog.Reporter) (model.Batch, error) {
	if reporter == nil {
		reporter = appLog.Discard
	}

	tbl, err := source.ReadFile(path)
	if err != nil {
		return model.Batch{}, fmt.Errorf("read %s: %w", path, err)
	}
	reporter.Report(appLog.LevelInfo, "input read", "path", path, "rows", len(tbl.Rows), "columns", len(tbl.Header))

	for _, col := range []string{cols.Date, cols.Time, cols.Module} {
		if !tbl.Has(col) {
			reporter.Report(appLog.LevelWarn, "required column missing from header", "column", col)
		}
	}

	m := schedule.NewMapper(cols, reporter).ForTable(tbl)
	return m.Build(tbl.Rows), nil
}
