package service

import (
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/tags"
)

const (
	maxConflictAttempts = 3
	maxRetryDelay       = 30 * time.Second
	baseRetryDelay      = 200 * time.Millisecond
)

var (
	ErrInvalidRecord = errors.New("invalid bookmark record")
	ErrStorage       = errors.New("storage error")
)

// Merger applies sync batches to the store. Every record is merged in its own
// transaction, so a failing record never blocks the rest of the batch.
type Merger struct {
	db        *gorm.DB
	opts      config.DatabaseOptions
	logger    *zap.SugaredLogger
	validate  *validator.Validate
	now       func() time.Time
	retryBase time.Duration
}

func NewMerger(db *gorm.DB, cfg *config.Config, l *zap.SugaredLogger) *Merger {
	return &Merger{
		db:        db,
		opts:      cfg.Database,
		logger:    l.Named("merger"),
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
		retryBase: baseRetryDelay,
	}
}

// Merge decodes each element of a raw batch on its own; an element that does
// not decode or validate is reported as failed and the rest still merge.
func (s *Merger) Merge(ctx context.Context, batch []json.RawMessage) *models.MergeReport {
	report := models.NewMergeReport(len(batch))
	for i, raw := range batch {
		rec := models.BookmarkRecord{}
		if err := json.Unmarshal(raw, &rec); err != nil {
			report.Add(models.RecordResult{
				Index:  i,
				URL:    peekURL(raw),
				Status: models.StatusFailed,
				Error:  invalid(err),
			})
			continue
		}
		report.Add(s.mergeRecord(ctx, i, rec))
	}
	s.logger.Infow("batch merged", "records", len(batch), "succeeded", report.Succeeded, "failed", report.Failed)
	return report
}

func (s *Merger) MergeRecords(ctx context.Context, records []models.BookmarkRecord) *models.MergeReport {
	report := models.NewMergeReport(len(records))
	for i := range records {
		report.Add(s.mergeRecord(ctx, i, records[i]))
	}
	s.logger.Infow("batch merged", "records", len(records), "succeeded", report.Succeeded, "failed", report.Failed)
	return report
}

func (s *Merger) mergeRecord(ctx context.Context, index int, rec models.BookmarkRecord) models.RecordResult {
	res := models.RecordResult{Index: index, URL: rec.URL}

	if err := s.validate.Struct(rec); err != nil {
		res.Status = models.StatusFailed
		res.Error = invalid(err)
		return res
	}
	if err := checkTags(rec.Tags); err != nil {
		res.Status = models.StatusFailed
		res.Error = invalid(err)
		return res
	}

	created, err := s.mergeWithRetry(ctx, rec)
	if err != nil {
		s.logger.Errorw("merge record", "url", rec.URL, "error", err)
		res.Status = models.StatusFailed
		res.Error = s.describe(err)
		return res
	}

	res.Status = models.StatusUpdated
	if created {
		res.Status = models.StatusCreated
	}
	return res
}

// mergeWithRetry re-runs the record's unit on transient storage failures, up
// to MaxRetryCount times with capped exponential backoff.
func (s *Merger) mergeWithRetry(ctx context.Context, rec models.BookmarkRecord) (bool, error) {
	backoff := retry.WithMaxRetries(uint64(s.opts.MaxRetryCount),
		retry.WithCappedDuration(maxRetryDelay, retry.NewExponential(s.retryBase)))

	var created bool
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var err error
		created, err = s.mergeResolvingConflicts(ctx, rec)
		if db.IsTransient(err) {
			s.logger.Warnw("transient storage error, retrying", "url", rec.URL, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	return created, err
}

// mergeResolvingConflicts turns a unique violation, which means another
// writer inserted the same url or tag first, into a fresh attempt that takes
// the update path.
func (s *Merger) mergeResolvingConflicts(ctx context.Context, rec models.BookmarkRecord) (bool, error) {
	var err error
	for attempt := 1; attempt <= maxConflictAttempts; attempt++ {
		var created bool
		created, err = s.mergeOnce(ctx, rec)
		if !db.IsUniqueViolation(err) {
			return created, err
		}
		s.logger.Debugw("concurrent insert, merging again", "url", rec.URL, "attempt", attempt)
	}
	return false, errors.Wrap(err, "unresolved unique conflict")
}

func (s *Merger) mergeOnce(ctx context.Context, rec models.BookmarkRecord) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.CommandTimeoutDuration())
	defer cancel()

	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()

		bookmark, isNew, err := upsertBookmark(tx, rec, now)
		if err != nil {
			return err
		}
		tagIDs, err := resolveTags(tx, rec.Tags, now)
		if err != nil {
			return err
		}
		if err := reconcileTags(tx, bookmark.ID, tagIDs, now); err != nil {
			return err
		}

		created = isNew
		return nil
	})
	return created, err
}

// upsertBookmark updates the bookmark with the record's url in place or
// inserts it. On Postgres the UPDATE holds the row lock until commit, which
// serializes concurrent merges of the same url.
func upsertBookmark(tx *gorm.DB, rec models.BookmarkRecord, now time.Time) (*db.Bookmark, bool, error) {
	bookmark := db.Bookmark{}
	err := tx.Where("url = ?", rec.URL).First(&bookmark).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		bookmark = db.Bookmark{
			GormForkedModel: db.GormForkedModel{
				CreatedAt: now,
				UpdatedAt: now,
			},
			URL:          rec.URL,
			Title:        rec.Title,
			Description:  rec.Description,
			SourceFolder: rec.SourceFolder,
		}
		if err := tx.Create(&bookmark).Error; err != nil {
			return nil, false, errors.Wrap(err, "create bookmark")
		}
		return &bookmark, true, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "find bookmark")
	}

	res := tx.Model(&bookmark).Updates(map[string]interface{}{
		"title":         rec.Title,
		"description":   rec.Description,
		"source_folder": rec.SourceFolder,
		"updated_at":    now,
	})
	if res.Error != nil {
		return nil, false, errors.Wrap(res.Error, "update bookmark")
	}
	return &bookmark, false, nil
}

// resolveTags returns the ids of the record's tags, creating the missing
// ones. An existing tag keeps the display name it was first stored with.
func resolveTags(tx *gorm.DB, displays []string, now time.Time) ([]uint64, error) {
	ids := make([]uint64, 0, len(displays))
	seen := make(map[string]bool, len(displays))
	for _, display := range displays {
		normalized := tags.Normalize(display)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		tag := db.Tag{}
		err := tx.Where("normalized_name = ?", normalized).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = db.Tag{
				Name:           display,
				NormalizedName: normalized,
				CreatedAt:      now,
			}
			if err := tx.Create(&tag).Error; err != nil {
				return nil, errors.Wrap(err, "create tag")
			}
		} else if err != nil {
			return nil, errors.Wrap(err, "find tag")
		}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

// reconcileTags makes the bookmark's join rows equal target: missing pairs
// are inserted, extra pairs deleted, shared pairs left alone.
func reconcileTags(tx *gorm.DB, bookmarkID uint64, target []uint64, now time.Time) error {
	current := make([]uint64, 0)
	err := tx.Model(&db.BookmarkTag{}).
		Where("bookmark_id = ?", bookmarkID).
		Pluck("tag_id", &current).Error
	if err != nil {
		return errors.Wrap(err, "load bookmark tags")
	}

	want := make(map[uint64]bool, len(target))
	for _, id := range target {
		want[id] = true
	}
	have := make(map[uint64]bool, len(current))
	for _, id := range current {
		have[id] = true
	}

	extra := make([]uint64, 0)
	for _, id := range current {
		if !want[id] {
			extra = append(extra, id)
		}
	}
	missing := make([]db.BookmarkTag, 0)
	for _, id := range target {
		if !have[id] {
			missing = append(missing, db.BookmarkTag{
				BookmarkID: bookmarkID,
				TagID:      id,
				CreatedAt:  now,
			})
		}
	}

	if len(extra) > 0 {
		err := tx.Where("bookmark_id = ? AND tag_id IN ?", bookmarkID, extra).
			Delete(&db.BookmarkTag{}).Error
		if err != nil {
			return errors.Wrap(err, "delete bookmark tags")
		}
	}
	if len(missing) > 0 {
		if err := tx.Omit(clause.Associations).Create(&missing).Error; err != nil {
			return errors.Wrap(err, "create bookmark tags")
		}
	}
	return nil
}

func (s *Merger) describe(err error) string {
	if s.opts.EnableDetailedErrors {
		return err.Error()
	}
	return ErrStorage.Error()
}

// checkTags rejects tags whose normalized form would not fit the tags table.
func checkTags(displays []string) error {
	for _, display := range displays {
		if n := utf8.RuneCountInString(tags.Normalize(display)); n > tags.MaxLength {
			return errors.Errorf("normalized tag %q is %d characters, max %d", display, n, tags.MaxLength)
		}
	}
	return nil
}

func invalid(err error) string {
	return ErrInvalidRecord.Error() + ": " + err.Error()
}

func peekURL(raw json.RawMessage) string {
	var probe struct {
		URL interface{} `json:"url"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	if u, ok := probe.URL.(string); ok {
		return u
	}
	return ""
}
