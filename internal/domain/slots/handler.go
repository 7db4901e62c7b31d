package slots

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/timegrid"
)

type Handler struct {
	gen                *Generator
	defaultGranularity int
}

func NewHandler(gen *Generator, defaultGranularity int) *Handler {
	return &Handler{gen: gen, defaultGranularity: defaultGranularity}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "clinician", "registrar"))
	read.GET("/clinicians/:clinician_id/slots", h.ListSlots)
}

// ListSlots handles
// GET /clinicians/:clinician_id/slots?from=&to=&duration=&granularity=.
func (h *Handler) ListSlots(c echo.Context) error {
	clinicianID, err := uuid.Parse(c.Param("clinician_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician_id")
	}
	from, err := timegrid.ParseDate(c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
	}
	to, err := timegrid.ParseDate(c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
	}
	duration, err := strconv.Atoi(c.QueryParam("duration"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "duration must be minutes")
	}
	granularity := h.defaultGranularity
	if g := c.QueryParam("granularity"); g != "" {
		granularity, err = strconv.Atoi(g)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "granularity must be minutes")
		}
	}

	items, err := h.gen.GenerateAll(c.Request().Context(), Request{
		ClinicianID:        clinicianID,
		From:               from,
		To:                 to,
		DurationMinutes:    duration,
		GranularityMinutes: granularity,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidDuration) || errors.Is(err, ErrInvalidGranularity) || errors.Is(err, ErrInvalidRange) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"clinician_id": clinicianID,
		"from":         from,
		"to":           to,
		"slots":        Recommend(items),
	})
}
