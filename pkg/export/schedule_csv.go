package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// ScheduleCSVExporter renders a squad agenda into CSV bytes, one row
// per event with its day label repeated.
type ScheduleCSVExporter struct{}

// NewScheduleCSVExporter builds a schedule CSV exporter.
func NewScheduleCSVExporter() *ScheduleCSVExporter {
	return &ScheduleCSVExporter{}
}

// Render produces CSV encoded bytes for the agenda.
func (e *ScheduleCSVExporter) Render(doc ScheduleDocument) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"day", "time", "title", "location", "participants"}); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, day := range doc.Days {
		for _, entry := range day.Entries {
			record := []string{day.Label, entry.TimeRange, entry.Title, entry.Location, entry.Participants}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
