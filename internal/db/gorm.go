package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/config"
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Bookmark struct {
		GormForkedModel
		URL          string  `gorm:"column:url;size:2000;not null;uniqueIndex:idx_bookmarks_url"`
		Title        string  `gorm:"size:500;not null"`
		Description  *string `gorm:"size:2000"`
		SourceFolder *string `gorm:"size:200;index:idx_bookmarks_source_folder"`
	}

	Tag struct {
		ID             uint64 `gorm:"primarykey"`
		Name           string `gorm:"size:100;not null"`
		NormalizedName string `gorm:"size:100;not null;uniqueIndex:idx_tags_normalized_name"`
		CreatedAt      time.Time
	}

	// BookmarkTag is the join row between a bookmark and a tag. Neither side
	// owns it, rows are added and removed explicitly during a merge.
	BookmarkTag struct {
		BookmarkID uint64   `gorm:"primaryKey;autoIncrement:false"`
		TagID      uint64   `gorm:"primaryKey;autoIncrement:false;index:idx_bookmark_tags_tag_id"`
		CreatedAt  time.Time
		Bookmark   Bookmark `gorm:"constraint:OnDelete:CASCADE"`
		Tag        Tag      `gorm:"constraint:OnDelete:CASCADE"`
	}
)

func NewGormClient(cfg *config.Config, logger *zap.SugaredLogger) (*gorm.DB, error) {
	return Open(postgres.Open(cfg.Database.ConnectionString), cfg.Database, logger)
}

// Open connects through the given dialector and applies the pool and
// migration settings of opts.
func Open(dialector gorm.Dialector, opts config.DatabaseOptions, logger *zap.SugaredLogger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewLogger(logger, opts),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql db")
	}
	sqlDB.SetMaxOpenConns(opts.PoolSize)
	sqlDB.SetMaxIdleConns(opts.PoolSize)

	if opts.AutoMigrateOnStartup {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Bookmark{}); err != nil {
		return errors.Wrap(err, "migrate bookmark")
	}
	if err := db.AutoMigrate(&Tag{}); err != nil {
		return errors.Wrap(err, "migrate tag")
	}
	if err := db.AutoMigrate(&BookmarkTag{}); err != nil {
		return errors.Wrap(err, "migrate bookmark tag")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_bookmarks_created_at ON bookmarks (created_at)").Error; err != nil {
		return errors.Wrap(err, "create created_at index")
	}
	return nil
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "get sql db")
	}
	return sqlDB.PingContext(ctx)
}
