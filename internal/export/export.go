// Package export writes a session's attendance state to the three download
// formats and parses the JSON form back, so an exported file can be imported
// as a new event without loss.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/rollcall-app/rollcall/internal/domain"
)

var (
	ErrMissingEventName    = errors.New("eventname is required")
	ErrMissingParticipants = errors.New("participants array is required")
)

const attendedMark = "O"

// Document is the JSON export shape, and the shape accepted back on import.
// The embedded settings flatten to the wire flag names.
type Document struct {
	EventName    string                 `json:"eventname"`
	EventInfo    string                 `json:"eventinfo"`
	Participants domain.ParticipantList `json:"participants"`
	TodayList    []string               `json:"todaylist,omitempty"`
	domain.Settings
}

// FromEvent flattens an event descriptor into a document.
func FromEvent(event domain.Event) Document {
	attended := make(map[int]bool, len(event.AttendedIndices))
	for _, i := range event.AttendedIndices {
		attended[i] = true
	}

	participants := make(domain.ParticipantList, len(event.Participants))
	for i, id := range event.Participants {
		participants[i] = domain.Attendee{ID: id, Attended: attended[i]}
	}

	return Document{
		EventName:    event.Name,
		EventInfo:    event.Info,
		Participants: participants,
		TodayList:    event.TodayList,
		Settings:     event.Settings,
	}
}

// Event rebuilds the descriptor a document describes.
func (d Document) Event() domain.Event {
	return domain.Event{
		Name:            d.EventName,
		Info:            d.EventInfo,
		Participants:    d.Participants.IDs(),
		TodayList:       d.TodayList,
		AttendedIndices: d.Participants.AttendedIndices(),
		Settings:        d.Settings,
	}
}

// ParseJSON reads and validates an import payload. Validation happens before
// any caller state changes: a malformed file is rejected whole.
func ParseJSON(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("json.Decode -> %w", err)
	}

	if doc.EventName == "" {
		return Document{}, ErrMissingEventName
	}
	if doc.Participants == nil {
		return Document{}, ErrMissingParticipants
	}

	doc.Settings.Normalize()

	return doc, nil
}

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("json.Encode -> %w", err)
	}

	return nil
}

// WriteCSV writes one row per participant: pre-registered roster entries
// first, then same-day entries, each marked with its category.
func WriteCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"id", "attended", "category"}); err != nil {
		return fmt.Errorf("cw.Write -> %w", err)
	}

	for _, entry := range doc.Participants {
		mark := ""
		if entry.Attended {
			mark = attendedMark
		}
		if err := cw.Write([]string{entry.ID, mark, "pre-registered"}); err != nil {
			return fmt.Errorf("cw.Write -> %w", err)
		}
	}
	for _, id := range doc.TodayList {
		if err := cw.Write([]string{id, attendedMark, "same-day"}); err != nil {
			return fmt.Errorf("cw.Write -> %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteXLSX writes a workbook with an attendee sheet, a same-day sheet and a
// statistics sheet.
func WriteXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	const (
		sheetAttendees  = "Attendees"
		sheetSameDay    = "Same-day"
		sheetStatistics = "Statistics"
	)

	f.SetSheetName("Sheet1", sheetAttendees)
	f.SetCellValue(sheetAttendees, "A1", "id")
	f.SetCellValue(sheetAttendees, "B1", "attended")
	for i, entry := range doc.Participants {
		row := strconv.Itoa(i + 2)
		f.SetCellValue(sheetAttendees, "A"+row, entry.ID)
		if entry.Attended {
			f.SetCellValue(sheetAttendees, "B"+row, attendedMark)
		}
	}

	if _, err := f.NewSheet(sheetSameDay); err != nil {
		return fmt.Errorf("f.NewSheet -> %w", err)
	}
	f.SetCellValue(sheetSameDay, "A1", "id")
	for i, id := range doc.TodayList {
		f.SetCellValue(sheetSameDay, "A"+strconv.Itoa(i+2), id)
	}

	attendedCount := len(doc.Participants.AttendedIndices())
	total := len(doc.Participants)
	rate := 0
	if total > 0 {
		rate = attendedCount * 100 / total
	}

	if _, err := f.NewSheet(sheetStatistics); err != nil {
		return fmt.Errorf("f.NewSheet -> %w", err)
	}
	stats := [][]interface{}{
		{"attended", attendedCount},
		{"attendance rate", strconv.Itoa(rate) + "%"},
		{"same-day", len(doc.TodayList)},
		{"total", attendedCount + len(doc.TodayList)},
	}
	for i, row := range stats {
		n := strconv.Itoa(i + 1)
		f.SetCellValue(sheetStatistics, "A"+n, row[0])
		f.SetCellValue(sheetStatistics, "B"+n, row[1])
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("f.Write -> %w", err)
	}

	return nil
}
