package service

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/tags"
)

type (
	General struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}

	BookmarkFilter struct {
		Tag          string
		SourceFolder string
		Limit        uint64
	}

	bookmarkTagRow struct {
		BookmarkID uint64
		Name       string
	}

	tagRow struct {
		ID             uint64
		Name           string
		NormalizedName string
		Bookmarks      int64
	}
)

func NewGeneral(db *gorm.DB, l *zap.SugaredLogger) *General {
	return &General{
		db:     db,
		logger: l,
	}
}

func (s *General) BookmarkList(ctx context.Context, f BookmarkFilter) ([]models.BookmarkResp, error) {
	q := squirrel.
		Select("b.id", "b.url", "b.title", "b.description", "b.source_folder", "b.created_at", "b.updated_at").
		From("bookmarks b").
		OrderBy("b.id")
	if f.Tag != "" {
		q = q.Join("bookmark_tags bt ON bt.bookmark_id = b.id").
			Join("tags t ON t.id = bt.tag_id").
			Where(squirrel.Eq{"t.normalized_name": tags.Normalize(f.Tag)})
	}
	if f.SourceFolder != "" {
		q = q.Where(squirrel.Eq{"b.source_folder": f.SourceFolder})
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	bookmarks := make([]db.Bookmark, 0)
	res := s.db.WithContext(ctx).Raw(sql, args...).Scan(&bookmarks)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}

	tagNames, err := s.tagNames(ctx, bookmarks)
	if err != nil {
		return nil, err
	}

	resp := make([]models.BookmarkResp, len(bookmarks))
	for i := range bookmarks {
		names := tagNames[bookmarks[i].ID]
		if names == nil {
			names = []string{}
		}
		resp[i] = models.BookmarkResp{
			ID:           bookmarks[i].ID,
			URL:          bookmarks[i].URL,
			Title:        bookmarks[i].Title,
			Description:  bookmarks[i].Description,
			SourceFolder: bookmarks[i].SourceFolder,
			Tags:         names,
			CreatedAt:    bookmarks[i].CreatedAt.In(time.UTC),
			UpdatedAt:    bookmarks[i].UpdatedAt.In(time.UTC),
		}
	}
	return resp, nil
}

func (s *General) tagNames(ctx context.Context, bookmarks []db.Bookmark) (map[uint64][]string, error) {
	names := make(map[uint64][]string, len(bookmarks))
	if len(bookmarks) == 0 {
		return names, nil
	}

	ids := make([]uint64, len(bookmarks))
	for i := range bookmarks {
		ids[i] = bookmarks[i].ID
	}
	sql, args, err := squirrel.
		Select("bt.bookmark_id", "t.name").
		From("bookmark_tags bt").
		Join("tags t ON t.id = bt.tag_id").
		Where(squirrel.Eq{"bt.bookmark_id": ids}).
		OrderBy("bt.bookmark_id", "t.normalized_name").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	rows := make([]bookmarkTagRow, 0)
	if res := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows); res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan tags")
	}
	for _, r := range rows {
		names[r.BookmarkID] = append(names[r.BookmarkID], r.Name)
	}
	return names, nil
}

func (s *General) TagList(ctx context.Context) ([]models.TagResp, error) {
	sql, args, err := squirrel.
		Select("t.id", "t.name", "t.normalized_name", "COUNT(bt.bookmark_id) AS bookmarks").
		From("tags t").
		LeftJoin("bookmark_tags bt ON bt.tag_id = t.id").
		GroupBy("t.id", "t.name", "t.normalized_name").
		OrderBy("t.normalized_name").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	rows := make([]tagRow, 0)
	if res := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows); res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}

	resp := make([]models.TagResp, len(rows))
	for i := range rows {
		resp[i] = models.TagResp{
			ID:             rows[i].ID,
			Name:           rows[i].Name,
			NormalizedName: rows[i].NormalizedName,
			Bookmarks:      rows[i].Bookmarks,
		}
	}
	return resp, nil
}

func (s *General) Ping(ctx context.Context) error {
	if err := db.Ping(ctx, s.db); err != nil {
		s.logger.Warnw("database ping failed", "error", err)
		return err
	}
	return nil
}
