package postgres

import "fichegen/internal/storage"

func init() {
	storage.Register("postgres", New)
}
