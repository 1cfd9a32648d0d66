package projecthub

import (
	"context"
	"fmt"
)

// Migrate creates or updates the schema of the configured store. Running it twice is safe.
// It opens the store directly, so no session secret is needed.
func Migrate(ctx context.Context, config *Config) error {
	logData, err := newLogData(config)
	if err != nil {
		return err
	}
	defer logData.Close()
	log := logData.Logger

	st, err := openStore(ctx, config, log)
	if err != nil {
		return err
	}
	defer st.Close()

	log.Info().Str("store", config.Store).Msg("migrating schema")
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info().Msg("migration completed")
	return nil
}
