package storage

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Apply runs modify on the stored record of the key under exclusive access and returns the new record.
// When nothing is stored yet the modification starts from a copy of current.
// If the store fails, the modification is applied on a copy of current and the error is returned with it,
// so that the caller can carry on in memory.
func Apply[T any](store Store, k Key, current T, modify func(state *T)) (T, error) {
	var next T
	err := store.Update(k, &next, func(found bool) error {
		if !found {
			next = Copy(current)
		}
		modify(&next)
		return nil
	})
	if err != nil {
		next = Copy(current)
		modify(&next)
		return next, err
	}
	return next, nil
}

// Copy deep copies a json friendly value.
func Copy[T any](v T) T {
	var c T
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("could not copy value")
		return v
	}
	if err := json.Unmarshal(b, &c); err != nil {
		log.Error().Err(err).Msg("could not copy value")
		return v
	}
	return c
}

// LoadOr loads the record of the key into value and reports if it was there.
// Read failures are logged and leave value untouched.
func LoadOr(p Persistence, k Key, value interface{}) bool {
	err := p.Load(k, value)
	if err == nil {
		return true
	}
	if IsMissing(err) {
		log.Debug().Str("key", k.Path()).Msg("no stored state")
	} else {
		log.Warn().Err(err).Str("key", k.Path()).Msg("could not load state, using defaults")
	}
	return false
}
