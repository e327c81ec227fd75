// Package pg opens a pgx/v5 connection pool with retries, applies goose
// migrations from an fs.FS and exposes a health check.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	if err := pg.Migrate(ctx, pool, migrationsFS, "migrations", cfg, log); err != nil {
//	    return err
//	}
package pg
