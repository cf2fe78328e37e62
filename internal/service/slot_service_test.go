package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/slotswap/slotswap-api/internal/dto"
	"github.com/slotswap/slotswap-api/internal/models"
	"github.com/slotswap/slotswap-api/internal/repository"
	"github.com/slotswap/slotswap-api/pkg/config"
	appErrors "github.com/slotswap/slotswap-api/pkg/errors"
)

type slotStoreStub struct {
	slots map[string]*models.Slot

	created      []*models.Slot
	updated      []*models.Slot
	deleted      []string
	statusCalls  [][3]string
	statusErr    error
	swappable    []models.SlotWithOwner
	swappableErr error
}

func (s *slotStoreStub) Create(ctx context.Context, slot *models.Slot) error {
	s.created = append(s.created, slot)
	return nil
}

func (s *slotStoreStub) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	if slot, ok := s.slots[id]; ok {
		copied := *slot
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *slotStoreStub) Update(ctx context.Context, slot *models.Slot) error {
	s.updated = append(s.updated, slot)
	return nil
}

func (s *slotStoreStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *slotStoreStub) ListByOwner(ctx context.Context, ownerID string) ([]models.Slot, error) {
	var out []models.Slot
	for _, slot := range s.slots {
		if slot.OwnerID == ownerID {
			out = append(out, *slot)
		}
	}
	return out, nil
}

func (s *slotStoreStub) ListSwappable(ctx context.Context, excludeOwnerID string) ([]models.SlotWithOwner, error) {
	return s.swappable, s.swappableErr
}

func (s *slotStoreStub) UpdateStatusIf(ctx context.Context, id string, from, to models.SlotStatus) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	s.statusCalls = append(s.statusCalls, [3]string{id, string(from), string(to)})
	return nil
}

type slotCacheStub struct {
	entries map[string][]models.SlotWithOwner
	sets    []string
	deletes []string
}

func (c *slotCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	cached, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*[]models.SlotWithOwner) = cached
	return nil
}

func (c *slotCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.sets = append(c.sets, key)
	return nil
}

func (c *slotCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deletes = append(c.deletes, pattern)
	return nil
}

type lookupMetricsStub struct {
	hits   int
	misses int
}

func (m *lookupMetricsStub) ObserveCacheLookup(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func slotFixture() *slotStoreStub {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &slotStoreStub{slots: map[string]*models.Slot{
		"slot-1": {ID: "slot-1", Title: "Standup", StartTime: start, EndTime: start.Add(time.Hour), Status: models.SlotBusy, OwnerID: "alice"},
		"slot-2": {ID: "slot-2", Title: "Review", StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour), Status: models.SlotSwappable, OwnerID: "alice"},
		"slot-3": {ID: "slot-3", Title: "Handoff", StartTime: start.Add(3 * time.Hour), EndTime: start.Add(4 * time.Hour), Status: models.SlotSwapPending, OwnerID: "alice"},
	}}
}

func newSlotService(repo *slotStoreStub, cache *slotCacheStub, metrics *lookupMetricsStub) *SlotService {
	var c slotCache
	if cache != nil {
		c = cache
	}
	var m slotMetrics
	if metrics != nil {
		m = metrics
	}
	return NewSlotService(repo, c, m, config.CacheConfig{SwappableTTL: time.Minute}, nil, zap.NewNop())
}

func TestSlotServiceCreateStartsBusy(t *testing.T) {
	repo := slotFixture()
	service := newSlotService(repo, nil, nil)

	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	slot, err := service.Create(context.Background(), "alice", dto.CreateSlotRequest{
		Title:     "Oncall",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.SlotBusy, slot.Status)
	assert.Equal(t, "alice", slot.OwnerID)
	require.Len(t, repo.created, 1)
}

func TestSlotServiceCreateRejectsInvertedInterval(t *testing.T) {
	repo := slotFixture()
	service := newSlotService(repo, nil, nil)

	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	_, err := service.Create(context.Background(), "alice", dto.CreateSlotRequest{
		Title:     "Oncall",
		StartTime: start,
		EndTime:   start.Add(-time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "end time must be after start time", appErrors.FromError(err).Message)
	assert.Empty(t, repo.created)
}

func TestSlotServiceUpdateNotOwner(t *testing.T) {
	repo := slotFixture()
	service := newSlotService(repo, nil, nil)

	title := "Hijacked"
	_, err := service.Update(context.Background(), "bob", "slot-1", dto.UpdateSlotRequest{Title: &title})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSlotServiceUpdateLockedSlot(t *testing.T) {
	repo := slotFixture()
	service := newSlotService(repo, nil, nil)

	title := "Renamed"
	_, err := service.Update(context.Background(), "alice", "slot-3", dto.UpdateSlotRequest{Title: &title})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updated)
}

func TestSlotServiceUpdateRejectsInvertedInterval(t *testing.T) {
	repo := slotFixture()
	service := newSlotService(repo, nil, nil)

	end := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := service.Update(context.Background(), "alice", "slot-1", dto.UpdateSlotRequest{EndTime: &end})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSlotServiceDeleteLockedSlot(t *testing.T) {
	repo := slotFixture()
	service := newSlotService(repo, nil, nil)

	err := service.Delete(context.Background(), "alice", "slot-3")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestSlotServiceDelete(t *testing.T) {
	repo := slotFixture()
	cache := &slotCacheStub{}
	service := newSlotService(repo, cache, nil)

	err := service.Delete(context.Background(), "alice", "slot-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"slot-1"}, repo.deleted)
	assert.Equal(t, []string{"swappable:*"}, cache.deletes)
}

func TestSlotServiceToggleBusyToSwappable(t *testing.T) {
	repo := slotFixture()
	service := newSlotService(repo, nil, nil)

	slot, err := service.ToggleSwappable(context.Background(), "alice", "slot-1")
	require.NoError(t, err)
	assert.Equal(t, models.SlotSwappable, slot.Status)
	require.Len(t, repo.statusCalls, 1)
	assert.Equal(t, [3]string{"slot-1", "BUSY", "SWAPPABLE"}, repo.statusCalls[0])
}

func TestSlotServiceToggleSwappableToBusy(t *testing.T) {
	repo := slotFixture()
	service := newSlotService(repo, nil, nil)

	slot, err := service.ToggleSwappable(context.Background(), "alice", "slot-2")
	require.NoError(t, err)
	assert.Equal(t, models.SlotBusy, slot.Status)
}

func TestSlotServiceToggleLockedSlot(t *testing.T) {
	repo := slotFixture()
	service := newSlotService(repo, nil, nil)

	_, err := service.ToggleSwappable(context.Background(), "alice", "slot-3")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "cannot toggle status for slots in SWAP_PENDING state", appErrors.FromError(err).Message)
	assert.Empty(t, repo.statusCalls)
}

func TestSlotServiceToggleLostRace(t *testing.T) {
	repo := slotFixture()
	repo.statusErr = repository.ErrStaleState
	service := newSlotService(repo, nil, nil)

	_, err := service.ToggleSwappable(context.Background(), "alice", "slot-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestSlotServiceListSwappableCacheMiss(t *testing.T) {
	repo := slotFixture()
	repo.swappable = []models.SlotWithOwner{{Slot: models.Slot{ID: "slot-9"}, OwnerName: "Bob"}}
	cache := &slotCacheStub{entries: map[string][]models.SlotWithOwner{}}
	metrics := &lookupMetricsStub{}
	service := newSlotService(repo, cache, metrics)

	slots, err := service.ListSwappable(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, []string{"swappable:exclude:alice"}, cache.sets)
}

func TestSlotServiceListSwappableCacheHit(t *testing.T) {
	repo := slotFixture()
	cache := &slotCacheStub{entries: map[string][]models.SlotWithOwner{
		"swappable:exclude:alice": {{Slot: models.Slot{ID: "slot-9"}, OwnerName: "Bob"}},
	}}
	metrics := &lookupMetricsStub{}
	service := newSlotService(repo, cache, metrics)

	slots, err := service.ListSwappable(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "slot-9", slots[0].ID)
	assert.Equal(t, 1, metrics.hits)
	assert.Empty(t, cache.sets)
}

func TestSlotServiceExportCSV(t *testing.T) {
	repo := slotFixture()
	service := newSlotService(repo, nil, nil)

	payload, contentType, err := service.Export(context.Background(), "alice", dto.ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "Title,Description,Start,End,Status"))
	assert.Contains(t, body, "Standup")
}

func TestSlotServiceExportPDF(t *testing.T) {
	repo := slotFixture()
	service := newSlotService(repo, nil, nil)

	payload, contentType, err := service.Export(context.Background(), "alice", dto.ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.NotEmpty(t, payload)
}

func TestSlotServiceExportUnknownFormat(t *testing.T) {
	repo := slotFixture()
	service := newSlotService(repo, nil, nil)

	_, _, err := service.Export(context.Background(), "alice", dto.ExportFormat("xml"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
