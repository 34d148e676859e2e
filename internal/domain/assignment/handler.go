package assignment

import (
	"errors"
	"net/http"
	"strconv"

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
	manage := auth.RequireRole(g, auth.RoleAdmin, auth.RoleDoctor)

	api.POST("/assignments", h.CreateAssignment, manage)
	api.POST("/assignments/:id/end", h.EndAssignment, manage)
	api.GET("/assignments", h.ListAssignments, manage)
	api.GET("/assignments/stats", h.Stats, manage)

	api.GET("/patients/:id/nurse", h.NurseForPatient, auth.RequireRelationship(g, "id"))
	api.GET("/nurses/:id/patients", h.PatientsForNurse,
		auth.RequireRole(g, auth.RoleAdmin, auth.RoleDoctor, auth.RoleNurse))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "assignment storage failure")
	}
}

type createAssignmentRequest struct {
	NurseID   uuid.UUID `json:"nurse_id"`
	PatientID uuid.UUID `json:"patient_id"`
}

func (h *Handler) CreateAssignment(c echo.Context) error {
	var req createAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	a, err := h.svc.Create(c.Request().Context(), req.NurseID, req.PatientID, p.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) EndAssignment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid assignment id")
	}
	if err := h.svc.End(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAssignments(c echo.Context) error {
	var f Filter
	if raw := c.QueryParam("nurse_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid nurse_id")
		}
		f.NurseID = &id
	}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid active flag")
		}
		f.ActiveOnly = active
	}
	params := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), f, params.Limit, params.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) Stats(c echo.Context) error {
	n, err := h.svc.CountActive(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"active_assignments": n})
}

type nurseForPatientResponse struct {
	PatientID uuid.UUID  `json:"patient_id"`
	NurseID   *uuid.UUID `json:"nurse_id"`
}

// NurseForPatient reports the active nurse for a patient. The route's
// relationship middleware has already vetted the caller, so an unassigned
// patient is a 200 with a null nurse_id, not an error.
func (h *Handler) NurseForPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	nurseID, ok, err := h.svc.NurseForPatient(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err)
	}
	res := nurseForPatientResponse{PatientID: patientID}
	if ok {
		res.NurseID = &nurseID
	}
	return c.JSON(http.StatusOK, res)
}

type patientsForNurseResponse struct {
	NurseID    uuid.UUID   `json:"nurse_id"`
	PatientIDs []uuid.UUID `json:"patient_ids"`
}

// PatientsForNurse lists a nurse's active patients. Admins and doctors can
// read any nurse's list; a nurse only their own.
func (h *Handler) PatientsForNurse(c echo.Context) error {
	nurseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid nurse id")
	}
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if p.Role == auth.RoleNurse && p.UserID != nurseID {
		return echo.NewHTTPError(http.StatusForbidden, "nurses can only view their own patients")
	}
	ids, err := h.svc.PatientsForNurse(c.Request().Context(), nurseID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patientsForNurseResponse{NurseID: nurseID, PatientIDs: ids})
}
