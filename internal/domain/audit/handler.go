package audit

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nurselink/nurselink/internal/platform/auth"
	"github.com/nurselink/nurselink/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, g *auth.Gate) {
	api.GET("/audit-events", h.ListEvents, auth.RequireRole(g, auth.RoleAdmin))
}

// ListEvents searches the trail. Admin only; the trail is how access gets
// reviewed, so it is never exposed to the roles it describes.
func (h *Handler) ListEvents(c echo.Context) error {
	var f Filter
	if raw := c.QueryParam("actor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid actor_id")
		}
		f.ActorID = &id
	}
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	f.Action = c.QueryParam("action")
	if raw := c.QueryParam("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid since timestamp")
		}
		f.Since = &ts
	}

	params := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), f, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "audit storage failure")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}
