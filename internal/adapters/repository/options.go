package repository

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMaxRecords bounds the number of retained records; the oldest are
// dropped first. Zero or negative keeps everything.
func WithMaxRecords(n int) MemoryOption {
	return func(s *MemoryStore) {
		s.maxRecords = n
	}
}

// SQLOption applies a configuration option to the SQLStore.
type SQLOption func(*SQLStore)

// WithMaxOpenConns caps the connection pool. SQLite is always limited to one.
func WithMaxOpenConns(n int) SQLOption {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}
