package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trial-registry-api/internal/dto"
	"github.com/noah-isme/trial-registry-api/internal/middleware"
	"github.com/noah-isme/trial-registry-api/internal/models"
	"github.com/noah-isme/trial-registry-api/internal/validation"
	appErrors "github.com/noah-isme/trial-registry-api/pkg/errors"
	"github.com/noah-isme/trial-registry-api/pkg/response"
)

const uploadField = "file"

type trialService interface {
	Add(ctx context.Context, payload dto.TrialPayload) (*models.Trial, error)
	Update(ctx context.Context, payload dto.TrialPayload) (*models.Trial, error)
	Get(ctx context.Context, id string) (*models.Trial, error)
	List(ctx context.Context, query dto.PaginationQuery) (*dto.TrialPage, error)
	ListByStatus(ctx context.Context, query dto.StatusQuery) (*dto.TrialPage, error)
	Export(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error)
}

type uploadValidator interface {
	Validate(upload validation.Upload) (*dto.TrialPayload, error)
}

// TrialHandler exposes clinical trial endpoints.
type TrialHandler struct {
	service trialService
	uploads uploadValidator
}

// NewTrialHandler builds a new handler.
func NewTrialHandler(service trialService, uploads uploadValidator) *TrialHandler {
	return &TrialHandler{service: service, uploads: uploads}
}

// Add godoc
// @Summary Register a clinical trial from a JSON file
// @Tags Trials
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Trial JSON document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /trials [post]
func (h *TrialHandler) Add(c *gin.Context) {
	payload, ok := h.readUpload(c)
	if !ok {
		return
	}
	trial, err := h.service.Add(c.Request.Context(), *payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	location := strings.TrimSuffix(c.FullPath(), "/") + "/" + url.PathEscape(trial.TrialID)
	response.Created(c, location, trial, middleware.ResponseMeta(c))
}

// Update godoc
// @Summary Replace a clinical trial from a JSON file
// @Tags Trials
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Trial JSON document"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /trials [put]
func (h *TrialHandler) Update(c *gin.Context) {
	payload, ok := h.readUpload(c)
	if !ok {
		return
	}
	trial, err := h.service.Update(c.Request.Context(), *payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trial, nil, middleware.ResponseMeta(c))
}

// Get godoc
// @Summary Get a clinical trial
// @Tags Trials
// @Produce json
// @Param trialId path string true "Trial ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /trials/{trialId} [get]
func (h *TrialHandler) Get(c *gin.Context) {
	trial, err := h.service.Get(c.Request.Context(), c.Param("trialId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if trial == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrTrialNotFound, "trial not found"))
		return
	}
	response.JSON(c, http.StatusOK, trial, nil, middleware.ResponseMeta(c))
}

// List godoc
// @Summary List clinical trials
// @Tags Trials
// @Produce json
// @Param page query int false "Page number (requires size)"
// @Param size query int false "Page size, at most 100 (requires page)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /trials [get]
func (h *TrialHandler) List(c *gin.Context) {
	query, err := paginationFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, &page.Pagination, middleware.ResponseMeta(c))
}

// ListByStatus godoc
// @Summary List clinical trials with a given status
// @Tags Trials
// @Produce json
// @Param status query string true "NotStarted, Ongoing or Completed"
// @Param page query int false "Page number (requires size)"
// @Param size query int false "Page size, at most 100 (requires page)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /trials/status [get]
func (h *TrialHandler) ListByStatus(c *gin.Context) {
	pagination, err := paginationFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.StatusQuery{PaginationQuery: pagination}
	if status, ok := c.GetQuery("status"); ok {
		query.Status = &status
	}
	page, err := h.service.ListByStatus(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, &page.Pagination, middleware.ResponseMeta(c))
}

// Export godoc
// @Summary Export clinical trials as CSV or PDF
// @Tags Trials
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Param status query string false "Only export trials with this status"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /trials/export [get]
func (h *TrialHandler) Export(c *gin.Context) {
	query := dto.ExportQuery{Format: c.Query("format")}
	if status, ok := c.GetQuery("status"); ok {
		query.Status = &status
	}
	file, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Content)
}

func (h *TrialHandler) readUpload(c *gin.Context) (*dto.TrialPayload, bool) {
	upload := validation.Upload{}
	header, err := c.FormFile(uploadField)
	if err == nil {
		file, openErr := header.Open()
		if openErr != nil {
			response.Error(c, appErrors.Wrap(openErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
			return nil, false
		}
		defer closeUpload(file)
		upload = validation.Upload{Filename: header.Filename, Size: header.Size, Content: file}
	}

	payload, err := h.uploads.Validate(upload)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return payload, true
}

func closeUpload(file multipart.File) {
	_ = file.Close()
}

func paginationFromQuery(c *gin.Context) (dto.PaginationQuery, error) {
	var query dto.PaginationQuery
	var err error
	if query.Page, err = optionalInt(c, "page"); err != nil {
		return query, err
	}
	if query.Size, err = optionalInt(c, "size"); err != nil {
		return query, err
	}
	return query, nil
}

func optionalInt(c *gin.Context, key string) (*int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, key+" must be an integer")
	}
	return &value, nil
}
