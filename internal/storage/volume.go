// /internal/storage/volume.go
package storage

import (
	"fmt"
	"strings"

	"schedule-bot/datastore"
)

// VolumeStore persists the per-guild playback volume in a JSON file keyed
// by guild id, e.g. {"123456": 0.35}.
type VolumeStore struct {
	ds *datastore.DataStore
}

func NewVolumeStore(ds *datastore.DataStore) *VolumeStore {
	return &VolumeStore{ds: ds}
}

// Load returns the stored volume for guildID, or false when none is set.
func (v *VolumeStore) Load(guildID string) (float64, bool) {
	var vol float64
	ok, err := v.ds.Get(guildID, &vol)
	if err != nil || !ok {
		return 0, false
	}
	return vol, true
}

// Save writes the volume and flushes the file.
func (v *VolumeStore) Save(guildID string, vol float64) error {
	if strings.TrimSpace(guildID) == "" {
		return fmt.Errorf("guild id is empty")
	}
	if err := v.ds.Put(guildID, vol); err != nil {
		return fmt.Errorf("save volume for %s: %w", guildID, err)
	}
	if err := v.ds.Flush(); err != nil {
		return fmt.Errorf("flush volume settings: %w", err)
	}
	return nil
}

// All returns every stored guild volume.
func (v *VolumeStore) All() map[string]float64 {
	out := make(map[string]float64)
	for _, k := range v.ds.Keys() {
		if vol, ok := v.Load(k); ok {
			out[k] = vol
		}
	}
	return out
}
