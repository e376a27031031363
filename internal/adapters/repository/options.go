package repository

// PostgresOption applies a configuration option to the PostgresStore.
type PostgresOption func(*PostgresStore)

// WithSchemaMigration controls whether NewPostgresStore creates the
// race_entries table and its index when missing. Enabled by default.
func WithSchemaMigration(enabled bool) PostgresOption {
	return func(s *PostgresStore) {
		s.migrate = enabled
	}
}
