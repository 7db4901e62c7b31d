package appointment

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/pagination"
	"github.com/clinicore/clinicore/pkg/timegrid"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "clinician", "registrar"))
	g.POST("/appointments", h.Book)
	g.GET("/appointments/:id", h.Get)
	g.POST("/appointments/:id/confirm", h.Confirm)
	g.POST("/appointments/:id/start", h.Start)
	g.POST("/appointments/:id/complete", h.Complete)
	g.POST("/appointments/:id/cancel", h.Cancel)
	g.POST("/appointments/:id/no-show", h.MarkNoShow)
	g.POST("/appointments/:id/reschedule", h.Reschedule)
	g.GET("/patients/:patient_id/appointments", h.ListByPatient)
	g.GET("/clinicians/:clinician_id/appointments", h.ListByClinician)
}

func (h *Handler) Book(c echo.Context) error {
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Book(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Confirm(c echo.Context) error {
	return h.act(c, h.svc.Confirm)
}

func (h *Handler) Start(c echo.Context) error {
	return h.act(c, h.svc.Start)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.act(c, h.svc.Complete)
}

func (h *Handler) MarkNoShow(c echo.Context) error {
	return h.act(c, h.svc.MarkNoShow)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Reason string `json:"reason"`
	}
	// Body is optional; ignore bind errors for an empty payload.
	_ = c.Bind(&body)
	a, err := h.svc.Cancel(c.Request().Context(), id, body.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Reschedule(c.Request().Context(), id, req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, p.Limit, p.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) ListByClinician(c echo.Context) error {
	clinicianID, err := uuid.Parse(c.Param("clinician_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician_id")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListByClinician(c.Request().Context(), clinicianID, p.Limit, p.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) act(c echo.Context, op func(ctx context.Context, id uuid.UUID) (*Appointment, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := op(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// mapError translates business errors to HTTP status codes. Conflicts and
// invalid transitions are 409, availability and timing rejections 422,
// unknown ids 404, malformed intervals 400.
func mapError(err error) error {
	var ce *ConflictError
	var te *InvalidTransitionError
	switch {
	case errors.As(err, &ce), errors.As(err, &te), errors.Is(err, ErrSlotNoLongerAvailable):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNoAvailability), errors.Is(err, ErrOutsideAvailability),
		errors.Is(err, ErrTooEarlyToStart), errors.Is(err, ErrNoShowBeforeStart):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, timegrid.ErrCrossesMidnight), errors.Is(err, timegrid.ErrInvalidTime):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
