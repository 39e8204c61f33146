// Package db wraps pgxpool with startup retries, transactions, health checks
// and goose migrations.
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := db.Migrate(ctx, pool, migrations.FS, cfg.MigrationsTable, log); err != nil {
//		return err
//	}
//
//	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, "UPDATE files SET thumbnail_size = $1 WHERE id = $2", size, id)
//		return err
//	})
//
// Errors are joined with the package sentinels, so callers can match them
// with errors.Is without losing the driver error.
package db
