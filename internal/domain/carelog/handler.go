package carelog

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebridge/carelog/internal/platform/auth"
	"github.com/carebridge/carelog/pkg/pagination"
)

var validate = validator.New()

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – caregivers and family members
	readGroup := api.Group("", auth.RequireRole("admin", "caregiver", "family"))
	readGroup.GET("/care-logs/caregiver/today", h.GetToday)
	readGroup.GET("/care-logs/recipient/:id/date/:date", h.GetByRecipientDate)
	readGroup.GET("/care-logs/:id", h.Get)
	readGroup.GET("/care-logs/:id/history", h.History)
	readGroup.GET("/care-logs/:id/alerts", h.Alerts)
	readGroup.GET("/care-logs/:id/sections", h.Sections)

	// Write endpoints – caregivers only
	writeGroup := api.Group("", auth.RequireRole("admin", "caregiver"))
	writeGroup.POST("/care-logs", h.Create)
	writeGroup.PATCH("/care-logs/:id", h.Save)
	writeGroup.POST("/care-logs/:id/submit-section", h.SubmitSection)
	writeGroup.POST("/care-logs/:id/submit", h.Submit)

	// Invalidation is an administrative correction
	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.POST("/care-logs/:id/invalidate", h.Invalidate)
}

type createDraftRequest struct {
	CareRecipientID uuid.UUID   `json:"care_recipient_id" validate:"required"`
	LogDate         string      `json:"log_date"`
	Sections        SectionData `json:"sections"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createDraftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.LogDate == "" {
		req.LogDate = time.Now().Format("2006-01-02")
	}
	d := &CareLogDraft{
		CareRecipientID: req.CareRecipientID,
		CaregiverID:     auth.UserIDFromContext(c.Request().Context()),
		LogDate:         req.LogDate,
		Sections:        req.Sections,
	}
	if err := h.svc.CreateDraft(c.Request().Context(), d); err != nil {
		if errors.Is(err, ErrDraftExists) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "care log not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetToday(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	d, err := h.svc.GetTodayForCaregiver(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no care log for today")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetByRecipientDate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid recipient id")
	}
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	d, err := h.svc.GetByRecipientDate(c.Request().Context(), id, date)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "care log not found")
	}
	return c.JSON(http.StatusOK, d)
}

type saveRequest struct {
	Sections SectionData `json:"sections"`
}

func (h *Handler) Save(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req saveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.SaveSections(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()), req.Sections)
	if err != nil {
		return draftError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type submitSectionRequest struct {
	Section string `json:"section" validate:"required,oneof=morning afternoon evening dailySummary"`
}

func (h *Handler) SubmitSection(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req submitSectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	completed, err := h.svc.SubmitSection(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()), req.Section)
	if err != nil {
		return draftError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"completed_sections": completed})
}

func (h *Handler) Submit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Submit(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return draftError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type invalidateRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Invalidate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req invalidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Invalidate(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()), req.Reason); err != nil {
		return draftError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) History(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.History(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Alerts(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	age, _ := strconv.Atoi(c.QueryParam("age"))
	gender := c.QueryParam("gender")
	alerts, err := h.svc.Alerts(c.Request().Context(), id, age, gender)
	if err != nil {
		return draftError(err)
	}
	if alerts == nil {
		alerts = []VitalAlert{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"alerts": alerts})
}

func (h *Handler) Sections(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	statuses, err := h.svc.Sections(c.Request().Context(), id)
	if err != nil {
		return draftError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sections": statuses})
}

// draftError maps domain sentinels onto HTTP status codes.
func draftError(err error) error {
	var inc *IncompleteError
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "care log not found")
	case errors.Is(err, ErrDraftImmutable):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnknownSection):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &inc):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "care log incomplete",
			"missing": inc.Missing,
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
