package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/trial-registry-api/internal/dto"
	"github.com/noah-isme/trial-registry-api/internal/models"
	"github.com/noah-isme/trial-registry-api/internal/validation"
	appErrors "github.com/noah-isme/trial-registry-api/pkg/errors"
	"github.com/noah-isme/trial-registry-api/pkg/export"
)

type trialRepository interface {
	FindByID(ctx context.Context, id string) (*models.Trial, error)
	List(ctx context.Context, filter models.TrialFilter) ([]models.Trial, int, error)
	Create(ctx context.Context, trial *models.Trial) error
	Update(ctx context.Context, trial *models.Trial) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// Operation labels used for logs and metrics.
const (
	OperationAdd          = "add"
	OperationUpdate       = "update"
	OperationGet          = "get"
	OperationList         = "list"
	OperationListByStatus = "list_by_status"
	OperationExport       = "export"
)

var exportHeaders = []string{"Trial ID", "Title", "Start Date", "End Date", "Participants", "Status", "Duration (days)"}

// TrialService orchestrates trial validation, persistence and caching.
type TrialService struct {
	repo    trialRepository
	queries *validation.QueryValidator
	cache   *TrialCache
	metrics *MetricsService
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewTrialService constructs a TrialService. cache and metrics may be nil.
func NewTrialService(repo trialRepository, queries *validation.QueryValidator, cache *TrialCache, metrics *MetricsService, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *TrialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queries == nil {
		queries, _ = validation.NewQueryValidator(nil)
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &TrialService{
		repo:    repo,
		queries: queries,
		cache:   cache,
		metrics: metrics,
		csv:     csv,
		pdf:     pdf,
		logger:  logger,
		now:     time.Now,
	}
}

// Add registers a new trial from an uploaded payload.
func (s *TrialService) Add(ctx context.Context, payload dto.TrialPayload) (*models.Trial, error) {
	existing, err := s.repo.FindByID(ctx, payload.TrialID)
	if err != nil {
		return nil, s.fail(OperationAdd, payload.TrialID, err)
	}
	if existing != nil {
		return nil, s.fail(OperationAdd, payload.TrialID, appErrors.ErrDuplicateTrialID)
	}

	trial := &models.Trial{TrialID: payload.TrialID}
	if err := apply(trial, payload); err != nil {
		return nil, s.fail(OperationAdd, payload.TrialID, err)
	}
	if err := s.repo.Create(ctx, trial); err != nil {
		return nil, s.fail(OperationAdd, payload.TrialID, err)
	}

	s.cache.Store(ctx, trial)
	s.metrics.RecordTrialOperation(OperationAdd, OutcomeSuccess)
	return trial, nil
}

// Update overwrites the mutable fields of an existing trial. The id is never changed.
func (s *TrialService) Update(ctx context.Context, payload dto.TrialPayload) (*models.Trial, error) {
	trial, err := s.repo.FindByID(ctx, payload.TrialID)
	if err != nil {
		return nil, s.fail(OperationUpdate, payload.TrialID, err)
	}
	if trial == nil {
		return nil, s.fail(OperationUpdate, payload.TrialID, appErrors.ErrTrialNotFound)
	}

	if err := apply(trial, payload); err != nil {
		return nil, s.fail(OperationUpdate, payload.TrialID, err)
	}
	if err := s.repo.Update(ctx, trial); err != nil {
		s.cache.Evict(ctx, payload.TrialID)
		return nil, s.fail(OperationUpdate, payload.TrialID, err)
	}

	s.cache.Store(ctx, trial)
	s.metrics.RecordTrialOperation(OperationUpdate, OutcomeSuccess)
	return trial, nil
}

// Get returns a trial by id, or nil when it does not exist.
func (s *TrialService) Get(ctx context.Context, id string) (*models.Trial, error) {
	if cached, ok := s.cache.Get(ctx, id); ok {
		return cached, nil
	}
	trial, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail(OperationGet, id, err)
	}
	if trial != nil {
		s.cache.Store(ctx, trial)
	}
	return trial, nil
}

// List returns all trials, optionally paginated.
func (s *TrialService) List(ctx context.Context, query dto.PaginationQuery) (*dto.TrialPage, error) {
	if err := s.queries.Pagination(query); err != nil {
		return nil, s.fail(OperationList, "", err)
	}
	return s.page(ctx, OperationList, models.TrialFilter{Page: query.Page, Size: query.Size})
}

// ListByStatus returns trials with the given status, optionally paginated.
func (s *TrialService) ListByStatus(ctx context.Context, query dto.StatusQuery) (*dto.TrialPage, error) {
	status, err := s.queries.Status(query)
	if err != nil {
		return nil, s.fail(OperationListByStatus, "", err)
	}
	return s.page(ctx, OperationListByStatus, models.TrialFilter{Status: &status, Page: query.Page, Size: query.Size})
}

// Export renders every trial, or the given status subset, as CSV or PDF.
func (s *TrialService) Export(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error) {
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		return nil, s.fail(OperationExport, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}

	filter := models.TrialFilter{}
	title := "Clinical trials"
	if query.Status != nil {
		status, err := models.ParseTrialStatus(*query.Status)
		if err != nil {
			return nil, s.fail(OperationExport, "", appErrors.Clone(appErrors.ErrInvalidStatus, "invalid status"))
		}
		filter.Status = &status
		title = fmt.Sprintf("Clinical trials - %s", status)
	}

	trials, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.fail(OperationExport, "", err)
	}

	dataset := trialDataset(trials)
	file := &dto.ExportFile{Filename: fmt.Sprintf("trials_%s.%s", s.now().UTC().Format("20060102_150405"), format)}
	switch format {
	case dto.ExportFormatCSV:
		file.ContentType = "text/csv"
		file.Content, err = s.csv.Render(dataset)
	case dto.ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Content, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, s.fail(OperationExport, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
	}

	s.metrics.RecordTrialOperation(OperationExport, OutcomeSuccess)
	return file, nil
}

func (s *TrialService) page(ctx context.Context, op string, filter models.TrialFilter) (*dto.TrialPage, error) {
	trials, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.fail(op, "", err)
	}
	s.metrics.RecordTrialOperation(op, OutcomeSuccess)
	return &dto.TrialPage{
		Items:      trials,
		Pagination: models.Pagination{Page: filter.Page, Size: filter.Size, TotalCount: total},
	}, nil
}

// fail normalises err, records the outcome and logs server-side failures once.
func (s *TrialService) fail(op, trialID string, err error) error {
	appErr := appErrors.FromError(err)
	if appErr.Status >= 500 {
		s.metrics.RecordTrialOperation(op, OutcomeFailed)
		fields := []zap.Field{zap.String("operation", op), zap.Error(appErr)}
		if trialID != "" {
			fields = append(fields, zap.String("trial_id", trialID))
		}
		s.logger.Error("trial operation failed", fields...)
		return appErr
	}
	s.metrics.RecordTrialOperation(op, OutcomeRejected)
	return appErr
}

// apply copies payload onto trial after checking the trial rules, then derives end date and duration.
func apply(trial *models.Trial, payload dto.TrialPayload) error {
	status, err := models.ParseTrialStatus(payload.Status)
	if err != nil {
		return appErrors.Clone(appErrors.ErrInvalidStatus, err.Error())
	}
	if err := validation.CheckTrial(payload.TrialID, payload.StartDate, payload.EndDate, status); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidTrialData, err.Error())
	}

	end := payload.EndDate
	if end == nil && status == models.TrialStatusOngoing {
		defaulted := payload.StartDate.AddMonths(1)
		if err := validation.CheckEndDateRange(defaulted); err != nil {
			return appErrors.Clone(appErrors.ErrInvalidTrialData, err.Error())
		}
		end = &defaulted
	}

	trial.Title = payload.Title
	trial.StartDate = payload.StartDate
	trial.EndDate = end
	trial.Participants = payload.Participants
	trial.Status = status
	trial.Duration = 0
	if end != nil {
		trial.Duration = models.DaysBetween(payload.StartDate, *end)
	}
	return nil
}

func trialDataset(trials []models.Trial) export.Dataset {
	rows := make([][]string, 0, len(trials))
	for _, t := range trials {
		end := ""
		if t.EndDate != nil {
			end = t.EndDate.String()
		}
		rows = append(rows, []string{
			t.TrialID,
			t.Title,
			t.StartDate.String(),
			end,
			strconv.Itoa(t.Participants),
			t.Status.String(),
			strconv.Itoa(t.Duration),
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}
