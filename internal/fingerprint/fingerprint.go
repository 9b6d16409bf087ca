// Package fingerprint mints and persists the anonymous device id sent
// with every turn request.
package fingerprint

import (
	"errors"

	"github.com/oklog/ulid/v2"

	"github.com/marketmind-ai/marketmind/internal/storage"
)

type record struct {
	ID string `json:"id"`
}

// Load returns the device fingerprint, minting and persisting one on
// first use. The same value is reused for every later session.
func Load(store *storage.Storage) (string, error) {
	var rec record
	err := store.Get([]string{"fingerprint"}, &rec)
	if err == nil && rec.ID != "" {
		return rec.ID, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}

	rec.ID = ulid.Make().String()
	if err := store.Put([]string{"fingerprint"}, &rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}
