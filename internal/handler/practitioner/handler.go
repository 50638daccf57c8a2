package practitioner

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/handler"
	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/internal/schedule"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
)

// CacheInvalidator lets the handler drop stale schedule cache entries after a
// write without depending on the availability service directly.
type CacheInvalidator interface {
	InvalidateCache(id uuid.UUID)
}

type Handler struct {
	repo  repository.PractitionerRepository
	cache CacheInvalidator
}

func NewHandler(repo repository.PractitionerRepository, cache CacheInvalidator) *Handler {
	return &Handler{repo: repo, cache: cache}
}

// validateSchedule rejects malformed schedule strings at write time so the
// read path never has to fall back for data we accepted ourselves.
func validateSchedule(sched string) error {
	if sched == "" {
		return nil
	}
	if _, err := schedule.ParseWeekly(sched); err != nil {
		return apperrors.MalformedSchedule("invalid schedule string", err)
	}
	return nil
}

func (h *Handler) CreatePractitioner(c *gin.Context) {
	var req model.CreatePractitionerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := validateSchedule(req.Schedule); err != nil {
		c.Error(err)
		return
	}

	now := time.Now().UTC()
	practitioner := &model.Practitioner{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:     req.Email,
		Name:      req.Name,
		Specialty: req.Specialty,
		Schedule:  req.Schedule,
		Status:    model.PractitionerStatusActive,
	}

	if err := h.repo.Create(c.Request.Context(), practitioner); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(practitioner))
}

func (h *Handler) GetPractitioner(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid practitioner ID"))
		return
	}

	practitioner, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(practitioner))
}

func (h *Handler) ListPractitioners(c *gin.Context) {
	practitioners, err := h.repo.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(practitioners))
}

func (h *Handler) UpdatePractitioner(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid practitioner ID"))
		return
	}

	var req model.UpdatePractitionerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	practitioner, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	if req.Email != nil {
		practitioner.Email = *req.Email
	}
	if req.Name != nil {
		practitioner.Name = *req.Name
	}
	if req.Specialty != nil {
		practitioner.Specialty = *req.Specialty
	}
	if req.Status != nil {
		practitioner.Status = *req.Status
	}
	practitioner.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(c.Request.Context(), practitioner); err != nil {
		c.Error(err)
		return
	}

	if h.cache != nil {
		h.cache.InvalidateCache(id)
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(practitioner))
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid practitioner ID"))
		return
	}

	var req model.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := validateSchedule(req.Schedule); err != nil {
		c.Error(err)
		return
	}

	if err := h.repo.UpdateSchedule(c.Request.Context(), id, req.Schedule); err != nil {
		c.Error(err)
		return
	}

	if h.cache != nil {
		h.cache.InvalidateCache(id)
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"schedule": req.Schedule}))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	practitioners := r.Group("/practitioners")
	{
		practitioners.POST("", h.CreatePractitioner)
		practitioners.GET("", h.ListPractitioners)
		practitioners.GET("/:id", h.GetPractitioner)
		practitioners.PATCH("/:id", h.UpdatePractitioner)
		practitioners.PUT("/:id/schedule", h.UpdateSchedule)
	}
}
