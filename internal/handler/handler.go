package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bioattend/internal/attendance"
	"bioattend/internal/auth"
)

// Checker reports whether a backing service is reachable.
type Checker interface {
	Healthy(ctx context.Context) bool
}

type Handler struct {
	svc    *attendance.Service
	checks map[string]Checker
	logger *slog.Logger
}

// New creates the HTTP boundary over svc. checks are probed by Healthz.
func New(svc *attendance.Service, checks map[string]Checker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, checks: checks, logger: logger.With("component", "http")}
}

// Register mounts the attendance routes on rg. Authentication is the
// caller's concern; handlers read the owner from auth.Owner.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/identities", h.CreateIdentity)
	rg.PATCH("/identities/:id", h.UpdateIdentity)
	rg.DELETE("/identities/:id", h.DeleteIdentity)

	rg.POST("/courses", h.CreateCourse)
	rg.POST("/courses/:id/enrollments", h.Enroll)

	rg.POST("/sessions", h.CreateSession)
	rg.POST("/sessions/:id/marks", h.Mark)
	rg.POST("/sessions/:id/close", h.Close)
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.checks {
		ok := check.Healthy(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// ---------- Identities ----------

type createIdentityRequest struct {
	Name         string `json:"name" binding:"required"`
	EnrollmentNo string `json:"enrollment_no" binding:"required"`
	Contact      string `json:"contact" binding:"omitempty,email"`
	Template     string `json:"template" binding:"required"`
}

func (h *Handler) CreateIdentity(c *gin.Context) {
	var req createIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.svc.CreateIdentity(c.Request.Context(), attendance.CreateIdentityInput{
		OwnerID:      auth.Owner(c),
		Name:         req.Name,
		EnrollmentNo: req.EnrollmentNo,
		Contact:      req.Contact,
		Template:     req.Template,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type updateIdentityRequest struct {
	Name     *string `json:"name"`
	Contact  *string `json:"contact"`
	Template *string `json:"template"`
}

func (h *Handler) UpdateIdentity(c *gin.Context) {
	var req updateIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	identity, err := h.svc.UpdateIdentity(c.Request.Context(), c.Param("id"), attendance.UpdateIdentityInput{
		Name:     req.Name,
		Contact:  req.Contact,
		Template: req.Template,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (h *Handler) DeleteIdentity(c *gin.Context) {
	if err := h.svc.DeleteIdentity(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- Courses & sessions ----------

type createCourseRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	course, err := h.svc.CreateCourse(c.Request.Context(), auth.Owner(c), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

type enrollRequest struct {
	IdentityID string `json:"identity_id" binding:"required"`
}

func (h *Handler) Enroll(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	enrollment, err := h.svc.EnrollInCourse(c.Request.Context(), req.IdentityID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, enrollment)
}

type createSessionRequest struct {
	CourseID string `json:"course_id" binding:"required"`
	Label    string `json:"label" binding:"required"`
	Date     string `json:"date" binding:"required,datetime=2006-01-02"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	date, _ := time.Parse(time.DateOnly, req.Date)
	session, err := h.svc.CreateSession(c.Request.Context(), auth.Owner(c), req.CourseID, req.Label, date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// ---------- Marking ----------

type markRequest struct {
	IdentityID string `json:"identity_id" binding:"required"`
	Sample     string `json:"sample"`
}

func (h *Handler) Mark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.svc.MarkAttendance(c.Request.Context(), attendance.MarkInput{
		SessionID:  c.Param("id"),
		IdentityID: req.IdentityID,
		Sample:     req.Sample,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Close(c *gin.Context) {
	res, err := h.svc.CloseSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- Errors ----------

func statusFor(kind attendance.Kind) int {
	switch kind {
	case attendance.KindValidation:
		return http.StatusBadRequest
	case attendance.KindConflict:
		return http.StatusConflict
	case attendance.KindNotFound:
		return http.StatusNotFound
	case attendance.KindForbidden:
		return http.StatusForbidden
	case attendance.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": attendance.ErrValidation.Code})
}

func (h *Handler) fail(c *gin.Context, err error) {
	kind := attendance.KindOf(err)
	status := statusFor(kind)
	body := gin.H{"error": err.Error(), "code": attendance.CodeOf(err)}

	var verr *attendance.VerificationError
	if errors.As(err, &verr) {
		body["score"] = verr.Score
		body["threshold"] = verr.Threshold
	}
	if kind == attendance.KindStorage {
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		body["error"] = "internal error"
	}
	c.AbortWithStatusJSON(status, body)
}
