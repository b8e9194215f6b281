package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/storage"
)

// memStorage keeps saved objects in memory.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
}

func (m *memStorage) Save(_ context.Context, key string, body io.Reader, _ string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = data
	return nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) PresignedURL(_ context.Context, key string) (string, time.Time, error) {
	return "https://exports.example.com/" + key, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), nil
}

func (f *fixture) export(store storage.Storage) *ExportService {
	s := NewExportService(f.habits, f.rewards, f.completions, f.totals, store)
	s.now = f.clock.Now
	return s
}

func TestExportService_Export(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	phone := f.reward(t, "Phone", 1000, 120)
	read := f.habit(t, "Read", 10, phone)
	old := f.habit(t, "Old", 5, nil)
	_, err := NewHabitService(f.habits, f.rewards, f.completions).SetArchived(ctx, f.userID, old.ID, true)
	require.NoError(t, err)

	_, err = f.checkin().CheckIn(ctx, f.userID, read.ID)
	require.NoError(t, err)

	export, err := f.export(nil).Export(ctx, f.userID)
	require.NoError(t, err)

	assert.Len(t, export.Habits, 2, "archived habits are exported")
	assert.Len(t, export.Rewards, 1)
	assert.Equal(t, 130, export.Rewards[0].CurrentEnergy)
	require.Len(t, export.Completions, 1)
	assert.Equal(t, read.ID, export.Completions[0].HabitID)
	assert.Equal(t, 10, export.TotalEnergy)
	assert.True(t, export.ExportedAt.Equal(f.clock.Now()))
}

func TestExportService_ExportEmptyAccount(t *testing.T) {
	f := newFixture(t)

	export, err := f.export(nil).Export(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Empty(t, export.Habits)
	assert.Empty(t, export.Completions)
	assert.Zero(t, export.TotalEnergy)
}

func TestExportService_Archive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.habit(t, "Read", 10, nil)

	store := &memStorage{}
	archive, err := f.export(store).Archive(ctx, f.userID)
	require.NoError(t, err)

	assert.Equal(t, storage.ExportKey(f.userID, f.clock.Now()), archive.Key)
	assert.Equal(t, "https://exports.example.com/"+archive.Key, archive.URL)
	assert.False(t, archive.ExpiresAt.IsZero())

	var saved model.Export
	require.NoError(t, json.Unmarshal(store.objects[archive.Key], &saved))
	require.Len(t, saved.Habits, 1)
	assert.Equal(t, "Read", saved.Habits[0].Name)
}

func TestExportService_ArchiveWithoutStorage(t *testing.T) {
	f := newFixture(t)

	_, err := f.export(nil).Archive(context.Background(), f.userID)
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
}

func TestExportService_ArchiveSaveFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("bucket unavailable")

	_, err := f.export(&memStorage{saveErr: boom}).Archive(context.Background(), f.userID)
	assert.ErrorIs(t, err, boom)
}
