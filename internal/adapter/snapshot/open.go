package snapshot

import (
	"context"
	"fmt"

	"pixelstudio/internal/adapter/repo"
	"pixelstudio/internal/domain"
	"pixelstudio/internal/infra"
	"pixelstudio/internal/storage"
)

// Open builds the snapshot repository selected by cfg.PersistBackend. The
// returned close func releases backend resources; it is never nil. A nil
// repository means jobs are kept in memory only.
func Open(ctx context.Context, cfg *infra.Config, logger infra.Logger) (domain.SnapshotRepository, func(), error) {
	noop := func() {}
	switch cfg.PersistBackend {
	case infra.PersistNone, "":
		return nil, noop, nil
	case infra.PersistFile:
		store, err := storage.NewFileStore(cfg.PersistPath)
		if err != nil {
			return nil, noop, err
		}
		file, err := storage.NewSnapshotFile(store, cfg.PersistNamespace)
		if err != nil {
			return nil, noop, err
		}
		logger.Info().Str("path", store.BasePath()).Str("key", file.Key()).Msg("snapshot: using file backend")
		return file, noop, nil
	case infra.PersistSQLite:
		db, err := repo.OpenSnapshotRepositorySQLite(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("snapshot: using sqlite backend")
		return db, func() {
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("snapshot: close sqlite")
			}
		}, nil
	case infra.PersistPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		pg := repo.NewSnapshotRepositoryPG(infra.NewSQLRunner(pool, logger))
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		logger.Info().Msg("snapshot: using postgres backend")
		return pg, pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("snapshot: unsupported backend %q", cfg.PersistBackend)
	}
}
