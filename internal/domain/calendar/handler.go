package calendar

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/domain/appointment"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/timegrid"
)

// AppointmentSource supplies the appointments to project; the calendar itself
// stores nothing.
type AppointmentSource interface {
	ListForRange(ctx context.Context, clinicianID uuid.UUID, from, to timegrid.Date) ([]*appointment.Appointment, error)
}

type Handler struct {
	src    AppointmentSource
	layout Layout
}

func NewHandler(src AppointmentSource, layout Layout) *Handler {
	return &Handler{src: src, layout: layout}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/calendar", auth.RequireRole("admin", "clinician", "registrar"))
	g.GET("/day", h.Day)
	g.GET("/week", h.Week)
	g.GET("/month", h.Month)
}

// Day handles GET /calendar/day?clinician_id=&date=YYYY-MM-DD.
func (h *Handler) Day(c echo.Context) error {
	return h.view(c, DayRange)
}

// Week handles GET /calendar/week?clinician_id=&date=YYYY-MM-DD; the range is
// the Monday-to-Sunday week containing date.
func (h *Handler) Week(c echo.Context) error {
	return h.view(c, WeekRange)
}

// Month handles GET /calendar/month?clinician_id=&date=YYYY-MM-DD.
func (h *Handler) Month(c echo.Context) error {
	return h.view(c, MonthRange)
}

func (h *Handler) view(c echo.Context, rangeOf func(timegrid.Date) (timegrid.Date, timegrid.Date)) error {
	clinicianID, err := uuid.Parse(c.QueryParam("clinician_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician_id")
	}
	date, err := timegrid.ParseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	from, to := rangeOf(date)
	appts, err := h.src.ListForRange(c.Request().Context(), clinicianID, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	placements, err := Project(appts, from, h.layout)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"clinician_id": clinicianID,
		"from":         from,
		"to":           to,
		"layout":       h.layout,
		"placements":   placements,
	})
}
