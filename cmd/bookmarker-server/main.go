package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/proto"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/service"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/transport"
)

func main() {
	fx.New(
		fx.Provide(
			config.NewConfig,
			NewLogger,
			db.NewGormClient,
		),
		service.Module,
		transport.Module,
		proto.Module,
		fx.Invoke(closeOnStop),
	).Run()
}

func NewLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if cfg.LogDevelopment {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = l.Sync()
			return nil
		},
	})
	return l.Sugar(), nil
}

func closeOnStop(lc fx.Lifecycle, gdb *gorm.DB, logger *zap.SugaredLogger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing database.")
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
}
