// Package calendar is the pure read path: it projects appointments onto a
// rendering grid and partitions them into day, week, and month buckets. It
// never mutates anything; the appointment set is supplied by the caller.
package calendar

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/appointment"
	"github.com/clinicore/clinicore/pkg/timegrid"
)

// Layout describes the rendering grid: rows begin at GridStartHour and each
// row covers SlotMinutes.
type Layout struct {
	GridStartHour int `json:"grid_start_hour"`
	SlotMinutes   int `json:"slot_minutes"`
}

// Placement locates one appointment on the grid. DayColumn is the offset of
// the appointment's date from the start of the projected range.
type Placement struct {
	AppointmentID uuid.UUID           `json:"appointment_id"`
	PatientID     uuid.UUID           `json:"patient_id"`
	Date          timegrid.Date       `json:"date"`
	Start         timegrid.TimeOfDay  `json:"start"`
	End           timegrid.TimeOfDay  `json:"end"`
	Type          appointment.Type    `json:"appointment_type"`
	Format        appointment.Format  `json:"format"`
	Location      string              `json:"location"`
	Status        appointment.Status  `json:"status"`
	DayColumn     int                 `json:"day_column"`
	StartRow      int                 `json:"start_row"`
	RowSpan       int                 `json:"row_span"`
}

// Project maps each appointment into its grid placement relative to
// rangeStart. Appointments starting before the grid opens are skipped rather
// than failing the whole projection; missing optional fields substitute
// defaults (in-person, empty location).
func Project(appts []*appointment.Appointment, rangeStart timegrid.Date, layout Layout) ([]Placement, error) {
	if layout.SlotMinutes <= 0 {
		return nil, fmt.Errorf("slot minutes must be positive, got %d", layout.SlotMinutes)
	}

	out := make([]Placement, 0, len(appts))
	for _, a := range appts {
		row, err := timegrid.ToRow(a.StartTime, layout.GridStartHour, layout.SlotMinutes)
		if err != nil {
			continue
		}
		format := a.Format
		if format == "" {
			format = appointment.DefaultFormat
		}
		location := ""
		if a.Location != nil {
			location = *a.Location
		}
		out = append(out, Placement{
			AppointmentID: a.ID,
			PatientID:     a.PatientID,
			Date:          a.Date,
			Start:         a.StartTime,
			End:           a.EndTime,
			Type:          a.Type,
			Format:        format,
			Location:      location,
			Status:        a.Status,
			DayColumn:     rangeStart.DaysUntil(a.Date),
			StartRow:      row,
			RowSpan:       timegrid.RowSpan(a.DurationMinutes(), layout.SlotMinutes),
		})
	}
	return out, nil
}

// DayRange returns the single-day range containing date.
func DayRange(date timegrid.Date) (timegrid.Date, timegrid.Date) {
	return date, date
}

// WeekRange returns the Monday-to-Sunday week containing date.
func WeekRange(date timegrid.Date) (timegrid.Date, timegrid.Date) {
	offset := int(date.Weekday()-time.Monday+7) % 7
	start := date.AddDays(-offset)
	return start, start.AddDays(6)
}

// MonthRange returns the first and last day of the month containing date.
func MonthRange(date timegrid.Date) (timegrid.Date, timegrid.Date) {
	start := timegrid.Date{Year: date.Year, Month: date.Month, Day: 1}
	end := start.AddDays(daysInMonth(date.Year, date.Month) - 1)
	return start, end
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Bucket groups placements by date, preserving their order within a day.
func Bucket(placements []Placement) map[timegrid.Date][]Placement {
	out := make(map[timegrid.Date][]Placement)
	for _, p := range placements {
		out[p.Date] = append(out[p.Date], p)
	}
	return out
}
