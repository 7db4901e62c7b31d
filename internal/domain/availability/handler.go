package availability

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/timegrid"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "clinician", "registrar"))
	read.GET("/clinicians/:clinician_id/windows", h.ListWindows)
	read.GET("/clinicians/:clinician_id/exceptions", h.ListExceptions)
	read.GET("/clinicians/:clinician_id/availability", h.ResolveDay)

	write := api.Group("", auth.RequireRole("admin", "clinician"))
	write.POST("/windows", h.CreateWindow)
	write.PUT("/windows/:id", h.UpdateWindow)
	write.DELETE("/windows/:id", h.DeleteWindow)
	write.POST("/exceptions", h.CreateException)
	write.DELETE("/exceptions/:id", h.DeleteException)
}

// -- Window handlers --

func (h *Handler) CreateWindow(c echo.Context) error {
	var w Window
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateWindow(c.Request().Context(), &w); err != nil {
		if errors.Is(err, ErrWindowOverlap) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) UpdateWindow(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var w Window
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w.ID = id
	if err := h.svc.UpdateWindow(c.Request().Context(), &w); err != nil {
		if errors.Is(err, ErrWindowOverlap) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "window not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) DeleteWindow(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteWindow(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListWindows(c echo.Context) error {
	clinicianID, err := uuid.Parse(c.Param("clinician_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician_id")
	}
	items, err := h.svc.ListWindows(c.Request().Context(), clinicianID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// -- Exception handlers --

func (h *Handler) CreateException(c echo.Context) error {
	var e Exception
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateException(c.Request().Context(), &e); err != nil {
		if errors.Is(err, ErrWindowOverlap) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) DeleteException(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteException(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListExceptions(c echo.Context) error {
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
	items, err := h.svc.ListExceptions(c.Request().Context(), clinicianID, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// ResolveDay handles GET /clinicians/:clinician_id/availability?date=YYYY-MM-DD.
func (h *Handler) ResolveDay(c echo.Context) error {
	clinicianID, err := uuid.Parse(c.Param("clinician_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician_id")
	}
	date, err := timegrid.ParseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	intervals, err := h.svc.ResolveDay(c.Request().Context(), clinicianID, date)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if intervals == nil {
		intervals = []Interval{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"clinician_id": clinicianID,
		"date":         date,
		"windows":      intervals,
	})
}
