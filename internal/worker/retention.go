package worker

import (
	"context"
	"time"

	"grade-import-service/internal/config"
	"grade-import-service/internal/db"
	"grade-import-service/internal/logger"
	"grade-import-service/internal/model"
	"grade-import-service/internal/storage"

	"github.com/rs/zerolog"
)

// RetentionWorker expires drafts that were never confirmed within the
// retention window and deletes their raw-file blobs. The pipeline also guards
// expiry at read time, so the sweeper only makes the transition durable and
// reclaims storage.
type RetentionWorker struct {
	cfg   *config.Config
	repo  db.Repository
	blobs storage.Storage
	pool  *Pool
	log   zerolog.Logger
}

func NewRetentionWorker(cfg *config.Config, repo db.Repository, blobs storage.Storage) *RetentionWorker {
	return &RetentionWorker{
		cfg:   cfg,
		repo:  repo,
		blobs: blobs,
		pool:  NewPool(cfg.Import.Sweep.Workers),
		log:   logger.Get(),
	}
}

func (w *RetentionWorker) Start(ctx context.Context) error {
	w.log.Info().
		Dur("interval", w.cfg.Import.Sweep.Interval).
		Dur("retention", w.cfg.Import.Retention).
		Msg("Starting retention worker")

	w.pool.Start(ctx)

	if w.cfg.Import.Sweep.RunOnStart {
		if err := w.sweep(ctx); err != nil {
			w.log.Error().Err(err).Msg("Initial sweep failed")
		}
	}

	ticker := time.NewTicker(w.cfg.Import.Sweep.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Retention worker context cancelled")
			return ctx.Err()
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.log.Error().Err(err).Msg("Sweep failed")
			}
		}
	}
}

func (w *RetentionWorker) Stop() {
	w.log.Info().Msg("Stopping retention worker")
	w.pool.Stop()
}

func (w *RetentionWorker) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-w.cfg.Import.Retention)

	drafts, err := w.repo.ListExpiredDrafts(ctx, cutoff, w.cfg.Import.Sweep.BatchSize)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		return nil
	}

	w.log.Info().Int("count", len(drafts)).Time("cutoff", cutoff).Msg("Expiring stale drafts")

	for _, draft := range drafts {
		draft := draft
		err := w.pool.Submit(ctx, func(ctx context.Context) error {
			return w.expire(ctx, draft)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *RetentionWorker) expire(ctx context.Context, draft model.ImportDraft) error {
	log := w.log.With().Str("draft_id", draft.ID).Logger()

	// Mark first: a draft must never become usable again because blob
	// deletion failed.
	if err := w.repo.SetDraftStatus(ctx, draft.ID, model.DraftStatusExpired); err != nil {
		log.Error().Err(err).Msg("Failed to mark draft expired")
		return err
	}

	// A re-swept draft may have lost its blob already; skip the delete so the
	// pass still succeeds.
	exists, err := w.blobs.Exists(ctx, draft.BlobKey)
	if err != nil {
		log.Warn().Err(err).Str("blob_key", draft.BlobKey).Msg("Failed to stat raw file, attempting delete")
	} else if !exists {
		log.Debug().Str("blob_key", draft.BlobKey).Msg("Raw file already gone")
		return nil
	}

	if err := w.blobs.Delete(ctx, draft.BlobKey); err != nil {
		log.Error().Err(err).Str("blob_key", draft.BlobKey).Msg("Failed to delete raw file")
		return err
	}

	log.Info().Msg("Draft expired")
	return nil
}
