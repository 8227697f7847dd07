package worker

import (
	"context"
	"testing"
	"time"

	"grade-import-service/internal/config"
	"grade-import-service/internal/db"
	"grade-import-service/internal/model"
	"grade-import-service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	db.Repository
	statuses map[string]model.DraftStatus
}

func (r *stubRepo) SetDraftStatus(_ context.Context, id string, status model.DraftStatus) error {
	r.statuses[id] = status
	return nil
}

type stubStorage struct {
	storage.Storage
	blobs   map[string]bool
	deletes int
}

func (s *stubStorage) Exists(_ context.Context, key string) (bool, error) {
	return s.blobs[key], nil
}

func (s *stubStorage) Delete(_ context.Context, key string) error {
	s.deletes++
	delete(s.blobs, key)
	return nil
}

func sweepEnv() (*RetentionWorker, *stubRepo, *stubStorage) {
	cfg := &config.Config{
		Import: config.ImportConfig{
			Retention: time.Hour,
			Sweep:     config.SweepConfig{Workers: 1, BatchSize: 10},
		},
	}
	repo := &stubRepo{statuses: make(map[string]model.DraftStatus)}
	blobs := &stubStorage{blobs: make(map[string]bool)}
	return NewRetentionWorker(cfg, repo, blobs), repo, blobs
}

func TestExpireDeletesRawFile(t *testing.T) {
	w, repo, blobs := sweepEnv()
	draft := model.ImportDraft{ID: "d1", BlobKey: storage.BlobKey("d1"), Status: model.DraftStatusPreviewed}
	blobs.blobs[draft.BlobKey] = true

	require.NoError(t, w.expire(context.Background(), draft))
	assert.Equal(t, model.DraftStatusExpired, repo.statuses["d1"])
	assert.Equal(t, 1, blobs.deletes)
	assert.False(t, blobs.blobs[draft.BlobKey])
}

func TestExpireSkipsMissingRawFile(t *testing.T) {
	w, repo, blobs := sweepEnv()
	draft := model.ImportDraft{ID: "d2", BlobKey: storage.BlobKey("d2"), Status: model.DraftStatusReceived}

	// A prior pass may have deleted the blob already; the draft must still
	// end up expired and the pass must not fail.
	require.NoError(t, w.expire(context.Background(), draft))
	assert.Equal(t, model.DraftStatusExpired, repo.statuses["d2"])
	assert.Equal(t, 0, blobs.deletes)
}
