package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// ScheduleDay is one day section of an agenda document.
type ScheduleDay struct {
	Label   string
	Entries []ScheduleEntry
}

// ScheduleEntry is a single event row inside a day section.
type ScheduleEntry struct {
	TimeRange    string
	Title        string
	Location     string
	Participants string
}

// ScheduleDocument is the renderable agenda: a titled range of days.
type ScheduleDocument struct {
	Title    string
	Subtitle string
	Days     []ScheduleDay
}

// SchedulePDFExporter renders a squad agenda into a PDF document.
type SchedulePDFExporter struct{}

// NewSchedulePDFExporter constructs a schedule PDF exporter.
func NewSchedulePDFExporter() *SchedulePDFExporter {
	return &SchedulePDFExporter{}
}

// Render creates the agenda PDF. Days with no entries still get a
// section with an empty marker so the reader can see the full range.
func (e *SchedulePDFExporter) Render(doc ScheduleDocument) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("schedule pdf requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 15, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, doc.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	for _, day := range doc.Days {
		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(235, 235, 245)
		pdf.CellFormat(0, 8, day.Label, "1", 1, "L", true, 0, "")

		if len(day.Entries) == 0 {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 7, "no events", "LRB", 1, "L", false, 0, "")
			continue
		}

		for _, entry := range day.Entries {
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(35, 7, entry.TimeRange, "LB", 0, "L", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			title := entry.Title
			if entry.Location != "" {
				title = fmt.Sprintf("%s @ %s", title, entry.Location)
			}
			pdf.CellFormat(95, 7, title, "B", 0, "L", false, 0, "")
			pdf.CellFormat(56, 7, entry.Participants, "RB", 1, "L", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render schedule pdf: %w", err)
	}
	return buf.Bytes(), nil
}
