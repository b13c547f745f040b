package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/trial-registry-api/internal/dto"
	"github.com/noah-isme/trial-registry-api/internal/models"
	"github.com/noah-isme/trial-registry-api/internal/validation"
	appErrors "github.com/noah-isme/trial-registry-api/pkg/errors"
	"github.com/noah-isme/trial-registry-api/pkg/export"
)

type mockTrialRepo struct {
	items     map[string]*models.Trial
	findErr   error
	createErr error
	updateErr error
	listErr   error
	finds     int
	creates   int
	updates   int
	lists     int
	filters   []models.TrialFilter
}

func newMockTrialRepo(trials ...models.Trial) *mockTrialRepo {
	repo := &mockTrialRepo{items: map[string]*models.Trial{}}
	for i := range trials {
		cp := trials[i]
		repo.items[cp.TrialID] = &cp
	}
	return repo
}

func (m *mockTrialRepo) FindByID(ctx context.Context, id string) (*models.Trial, error) {
	m.finds++
	if m.findErr != nil {
		return nil, m.findErr
	}
	if trial, ok := m.items[id]; ok {
		cp := *trial
		return &cp, nil
	}
	return nil, nil
}

func (m *mockTrialRepo) List(ctx context.Context, filter models.TrialFilter) ([]models.Trial, int, error) {
	m.lists++
	m.filters = append(m.filters, filter)
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	ids := make([]string, 0, len(m.items))
	for id, trial := range m.items {
		if filter.Status != nil && trial.Status != *filter.Status {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	total := len(ids)
	if filter.Paginated() {
		start := filter.Offset()
		if start > len(ids) {
			start = len(ids)
		}
		end := start + *filter.Size
		if end > len(ids) {
			end = len(ids)
		}
		ids = ids[start:end]
	}
	result := make([]models.Trial, 0, len(ids))
	for _, id := range ids {
		result = append(result, *m.items[id])
	}
	return result, total, nil
}

func (m *mockTrialRepo) Create(ctx context.Context, trial *models.Trial) error {
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	cp := *trial
	m.items[trial.TrialID] = &cp
	return nil
}

func (m *mockTrialRepo) Update(ctx context.Context, trial *models.Trial) error {
	m.updates++
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *trial
	m.items[trial.TrialID] = &cp
	return nil
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func datePtr(d models.Date) *models.Date { return &d }

func newTestTrialService(t *testing.T, repo *mockTrialRepo, cache *TrialCache) *TrialService {
	t.Helper()
	queries, err := validation.NewQueryValidator(nil)
	require.NoError(t, err)
	return NewTrialService(repo, queries, cache, NewMetricsService(), zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
}

func TestTrialServiceAddOngoingDefaultsEndDate(t *testing.T) {
	repo := newMockTrialRepo()
	svc := newTestTrialService(t, repo, nil)

	trial, err := svc.Add(context.Background(), dto.TrialPayload{
		TrialID:      "T1",
		Title:        "Trial A",
		StartDate:    models.NewDate(2025, time.January, 1),
		Participants: 10,
		Status:       "Ongoing",
	})
	require.NoError(t, err)
	require.NotNil(t, trial.EndDate)
	assert.Equal(t, "2025-02-01", trial.EndDate.String())
	assert.Equal(t, 31, trial.Duration)
	assert.Equal(t, models.TrialStatusOngoing, trial.Status)
	assert.Equal(t, 1, repo.creates)
	assert.Contains(t, repo.items, "T1")
}

func TestTrialServiceAddNormalisesStatus(t *testing.T) {
	repo := newMockTrialRepo()
	svc := newTestTrialService(t, repo, nil)

	trial, err := svc.Add(context.Background(), dto.TrialPayload{
		TrialID:   "T2",
		StartDate: models.NewDate(2025, time.March, 1),
		Status:    " not  STARTED ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TrialStatusNotStarted, trial.Status)
	assert.Nil(t, trial.EndDate)
	assert.Zero(t, trial.Duration)
}

func TestTrialServiceAddRejectsCompletedWithoutEndDate(t *testing.T) {
	repo := newMockTrialRepo()
	svc := newTestTrialService(t, repo, nil)

	_, err := svc.Add(context.Background(), dto.TrialPayload{
		TrialID:   "T3",
		StartDate: models.NewDate(2025, time.January, 1),
		Status:    "Completed",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTrialData)
	assert.Equal(t, "end date required for completed trials", appErrors.FromError(err).Message)
	assert.Zero(t, repo.creates)
}

func TestTrialServiceAddRejectsEndBeforeStart(t *testing.T) {
	repo := newMockTrialRepo()
	svc := newTestTrialService(t, repo, nil)

	_, err := svc.Add(context.Background(), dto.TrialPayload{
		TrialID:   "T4",
		StartDate: models.NewDate(2025, time.February, 1),
		EndDate:   datePtr(models.NewDate(2025, time.January, 1)),
		Status:    "Completed",
	})
	assert.ErrorIs(t, err, appErrors.ErrInvalidTrialData)
	assert.Equal(t, "end date must be greater than or equal to start date", appErrors.FromError(err).Message)
	assert.Zero(t, repo.creates)
}

func TestTrialServiceAddRejectsDefaultedEndPastMaxYear(t *testing.T) {
	repo := newMockTrialRepo()
	svc := newTestTrialService(t, repo, nil)

	_, err := svc.Add(context.Background(), dto.TrialPayload{
		TrialID:   "T6",
		StartDate: models.NewDate(models.MaxYear, time.December, 15),
		Status:    "Ongoing",
	})
	assert.ErrorIs(t, err, appErrors.ErrInvalidTrialData)
	assert.Equal(t, "end date exceeds the latest supported date", appErrors.FromError(err).Message)
	assert.Zero(t, repo.creates)
}

func TestTrialServiceAddRejectsReservedID(t *testing.T) {
	repo := newMockTrialRepo()
	svc := newTestTrialService(t, repo, nil)

	_, err := svc.Add(context.Background(), dto.TrialPayload{
		TrialID:   "status",
		StartDate: models.NewDate(2025, time.January, 1),
		Status:    "NotStarted",
	})
	assert.ErrorIs(t, err, appErrors.ErrInvalidTrialData)
	assert.Equal(t, "id is reserved", appErrors.FromError(err).Message)
	assert.Zero(t, repo.creates)
}

func TestTrialServiceAddRejectsInvalidStatus(t *testing.T) {
	repo := newMockTrialRepo()
	svc := newTestTrialService(t, repo, nil)

	_, err := svc.Add(context.Background(), dto.TrialPayload{
		TrialID:   "T5",
		StartDate: models.NewDate(2025, time.January, 1),
		Status:    "Paused",
	})
	assert.ErrorIs(t, err, appErrors.ErrInvalidStatus)
	assert.Zero(t, repo.creates)
}

func TestTrialServiceAddDuplicateDoesNotWrite(t *testing.T) {
	existing := models.Trial{TrialID: "T1", Title: "First registration", StartDate: models.NewDate(2024, time.June, 1), Status: models.TrialStatusNotStarted}
	repo := newMockTrialRepo(existing)
	svc := newTestTrialService(t, repo, nil)

	_, err := svc.Add(context.Background(), dto.TrialPayload{
		TrialID:   "T1",
		Title:     "Replacement",
		StartDate: models.NewDate(2025, time.January, 1),
		Status:    "Ongoing",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateTrialID)
	assert.Zero(t, repo.creates)
	assert.Equal(t, "First registration", repo.items["T1"].Title)
}

func TestTrialServiceAddPropagatesStorageError(t *testing.T) {
	repo := newMockTrialRepo()
	repo.createErr = appErrors.Wrap(errors.New("connection reset"), appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	svc := newTestTrialService(t, repo, nil)

	_, err := svc.Add(context.Background(), dto.TrialPayload{
		TrialID:   "T6",
		StartDate: models.NewDate(2025, time.January, 1),
		Status:    "NotStarted",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrStorage)
	assert.Equal(t, "an error occurred while processing your request", appErrors.FromError(err).Message)
}

func TestTrialServiceUpdateOverwritesMutableFields(t *testing.T) {
	existing := models.Trial{
		TrialID:      "T1",
		Title:        "Old",
		StartDate:    models.NewDate(2024, time.January, 1),
		Participants: 5,
		Status:       models.TrialStatusNotStarted,
	}
	repo := newMockTrialRepo(existing)
	svc := newTestTrialService(t, repo, nil)

	trial, err := svc.Update(context.Background(), dto.TrialPayload{
		TrialID:      "T1",
		Title:        "New",
		StartDate:    models.NewDate(2025, time.January, 1),
		EndDate:      datePtr(models.NewDate(2025, time.January, 11)),
		Participants: 20,
		Status:       "completed",
	})
	require.NoError(t, err)
	assert.Equal(t, "T1", trial.TrialID)
	assert.Equal(t, 1, repo.updates)

	stored := repo.items["T1"]
	assert.Equal(t, "New", stored.Title)
	assert.Equal(t, 20, stored.Participants)
	assert.Equal(t, models.TrialStatusCompleted, stored.Status)
	assert.Equal(t, 10, stored.Duration)
}

func TestTrialServiceUpdateOngoingWithoutEndDate(t *testing.T) {
	repo := newMockTrialRepo(models.Trial{TrialID: "T1", StartDate: models.NewDate(2024, time.January, 1), Status: models.TrialStatusNotStarted})
	svc := newTestTrialService(t, repo, nil)

	trial, err := svc.Update(context.Background(), dto.TrialPayload{
		TrialID:   "T1",
		StartDate: models.NewDate(2025, time.January, 31),
		Status:    "Ongoing",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28", trial.EndDate.String())
	assert.Equal(t, 28, trial.Duration)
}

func TestTrialServiceUpdateMissingTrial(t *testing.T) {
	repo := newMockTrialRepo()
	svc := newTestTrialService(t, repo, nil)

	_, err := svc.Update(context.Background(), dto.TrialPayload{
		TrialID:   "missing",
		StartDate: models.NewDate(2025, time.January, 1),
		Status:    "Ongoing",
	})
	assert.ErrorIs(t, err, appErrors.ErrTrialNotFound)
	assert.Zero(t, repo.updates)
}

func TestTrialServiceGet(t *testing.T) {
	repo := newMockTrialRepo(models.Trial{TrialID: "T1", Title: "Trial A", Status: models.TrialStatusOngoing})
	svc := newTestTrialService(t, repo, nil)

	trial, err := svc.Get(context.Background(), "T1")
	require.NoError(t, err)
	require.NotNil(t, trial)
	assert.Equal(t, "Trial A", trial.Title)

	missing, err := svc.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTrialServiceGetUsesCache(t *testing.T) {
	repo := newMockTrialRepo(models.Trial{TrialID: "T1", Title: "Trial A", Status: models.TrialStatusOngoing})
	store := newFakeCacheStore()
	cache := NewTrialCache(store, nil, time.Minute, zap.NewNop(), true)
	svc := newTestTrialService(t, repo, cache)

	first, err := svc.Get(context.Background(), "T1")
	require.NoError(t, err)
	second, err := svc.Get(context.Background(), "T1")
	require.NoError(t, err)

	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, 1, repo.finds)
	assert.Contains(t, store.values, "trials:id:T1")
}

func TestTrialServiceUpdateRefreshesCache(t *testing.T) {
	repo := newMockTrialRepo(models.Trial{TrialID: "T1", Title: "Old", StartDate: models.NewDate(2025, time.January, 1), Status: models.TrialStatusNotStarted})
	store := newFakeCacheStore()
	cache := NewTrialCache(store, nil, time.Minute, zap.NewNop(), true)
	svc := newTestTrialService(t, repo, cache)

	_, err := svc.Get(context.Background(), "T1")
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), dto.TrialPayload{
		TrialID:   "T1",
		Title:     "New",
		StartDate: models.NewDate(2025, time.January, 1),
		Status:    "NotStarted",
	})
	require.NoError(t, err)

	trial, err := svc.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "New", trial.Title)
}

func TestTrialServiceListRejectsInvalidPage(t *testing.T) {
	repo := newMockTrialRepo()
	svc := newTestTrialService(t, repo, nil)

	_, err := svc.List(context.Background(), dto.PaginationQuery{Page: intPtr(0), Size: intPtr(5)})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, "page number must be greater than 0", appErrors.FromError(err).Message)
	assert.Zero(t, repo.lists)
}

func TestTrialServiceListPaginates(t *testing.T) {
	repo := newMockTrialRepo(
		models.Trial{TrialID: "A", Status: models.TrialStatusOngoing},
		models.Trial{TrialID: "B", Status: models.TrialStatusCompleted},
		models.Trial{TrialID: "C", Status: models.TrialStatusOngoing},
	)
	svc := newTestTrialService(t, repo, nil)

	page, err := svc.List(context.Background(), dto.PaginationQuery{Page: intPtr(2), Size: intPtr(2)})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "C", page.Items[0].TrialID)
	assert.Equal(t, 3, page.Pagination.TotalCount)
	assert.Equal(t, 2, *page.Pagination.Page)

	all, err := svc.List(context.Background(), dto.PaginationQuery{Page: intPtr(1)})
	require.NoError(t, err)
	assert.Len(t, all.Items, 3)
}

func TestTrialServiceListByStatusRejectsBeforeStorage(t *testing.T) {
	repo := newMockTrialRepo()
	svc := newTestTrialService(t, repo, nil)

	_, err := svc.ListByStatus(context.Background(), dto.StatusQuery{Status: strPtr("InvalidStatus")})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidStatus)
	assert.Zero(t, repo.lists)

	_, err = svc.ListByStatus(context.Background(), dto.StatusQuery{})
	assert.ErrorIs(t, err, appErrors.ErrInvalidStatus)
	assert.Zero(t, repo.lists)
}

func TestTrialServiceListByStatusFilters(t *testing.T) {
	repo := newMockTrialRepo(
		models.Trial{TrialID: "A", Status: models.TrialStatusOngoing},
		models.Trial{TrialID: "B", Status: models.TrialStatusCompleted},
		models.Trial{TrialID: "C", Status: models.TrialStatusOngoing},
	)
	svc := newTestTrialService(t, repo, nil)

	page, err := svc.ListByStatus(context.Background(), dto.StatusQuery{Status: strPtr("ongoing")})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.TotalCount)
	for _, trial := range page.Items {
		assert.Equal(t, models.TrialStatusOngoing, trial.Status)
	}
}

func TestTrialServiceStorageFailureRecorded(t *testing.T) {
	repo := newMockTrialRepo()
	repo.listErr = appErrors.Wrap(errors.New("db down"), appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	svc := newTestTrialService(t, repo, nil)

	_, err := svc.List(context.Background(), dto.PaginationQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrStorage)

	assert.Equal(t, 1.0, counterValue(t, svc.metrics, "trial_operations_total", map[string]string{"operation": OperationList, "outcome": OutcomeFailed}))
}

func TestTrialServiceExport(t *testing.T) {
	end := models.NewDate(2025, time.February, 1)
	repo := newMockTrialRepo(
		models.Trial{TrialID: "A", Title: "Alpha", StartDate: models.NewDate(2025, time.January, 1), EndDate: &end, Participants: 3, Status: models.TrialStatusOngoing, Duration: 31},
		models.Trial{TrialID: "B", Title: "Beta", StartDate: models.NewDate(2025, time.January, 1), Status: models.TrialStatusNotStarted},
	)
	svc := newTestTrialService(t, repo, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	file, err := svc.Export(context.Background(), dto.ExportQuery{Format: "CSV", Status: strPtr("ongoing")})
	require.NoError(t, err)
	assert.Equal(t, "trials_20250301_120000.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "Trial ID,Title,Start Date,End Date,Participants,Status,Duration (days)\nA,Alpha,2025-01-01,2025-02-01,3,Ongoing,31\n", string(file.Content))

	pdf, err := svc.Export(context.Background(), dto.ExportQuery{Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.NotEmpty(t, pdf.Content)
}

func TestTrialServiceExportRejectsBadInput(t *testing.T) {
	repo := newMockTrialRepo()
	svc := newTestTrialService(t, repo, nil)

	_, err := svc.Export(context.Background(), dto.ExportQuery{Format: "xml"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Export(context.Background(), dto.ExportQuery{Format: "csv", Status: strPtr("later")})
	assert.ErrorIs(t, err, appErrors.ErrInvalidStatus)
	assert.Zero(t, repo.lists)
}
