// Package datastore is a small JSON-file key/value store. Values are kept in
// memory as raw JSON and flushed to disk atomically, on an interval and on
// Close. It holds the per-guild playback preferences.
package datastore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"schedule-bot/pkg/logx"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("datastore is closed")

type Config struct {
	FilePath         string
	AutoSaveInterval time.Duration // 0 disables the background flush
	BackupCount      int           // rotated copies kept next to the file
	Logger           logx.Logger
}

// DefaultConfig returns a configuration with a 10s autosave and 3 backups.
func DefaultConfig(filePath string) Config {
	return Config{
		FilePath:         filePath,
		AutoSaveInterval: 10 * time.Second,
		BackupCount:      3,
	}
}

type DataStore struct {
	cfg Config
	log logx.Logger

	mu           sync.RWMutex
	data         map[string]json.RawMessage
	lastChecksum string
	closed       bool

	saveMu sync.Mutex
	stop   chan struct{}
	wg     sync.WaitGroup
}

// Open loads cfg.FilePath, creating it when missing, and starts autosave.
func Open(cfg Config) (*DataStore, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	ds := &DataStore{
		cfg:  cfg,
		log:  cfg.Logger.With(logx.String("component", "datastore")),
		data: make(map[string]json.RawMessage),
		stop: make(chan struct{}),
	}

	switch _, err := os.Stat(cfg.FilePath); {
	case errors.Is(err, os.ErrNotExist):
		if err := writeFileAtomic(cfg.FilePath, []byte("{}")); err != nil {
			return nil, fmt.Errorf("create empty file: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", cfg.FilePath, err)
	default:
		if err := ds.load(); err != nil {
			return nil, err
		}
	}

	if cfg.AutoSaveInterval > 0 {
		ds.wg.Add(1)
		go ds.autoSave()
	}
	return ds, nil
}

// Put stores v under key as JSON.
func (ds *DataStore) Put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return ErrClosed
	}
	ds.data[key] = raw
	return nil
}

// Get decodes the value under key into out. ok is false when key is absent.
func (ds *DataStore) Get(key string, out any) (ok bool, err error) {
	ds.mu.RLock()
	raw, exists := ds.data[key]
	closed := ds.closed
	ds.mu.RUnlock()

	if closed {
		return false, ErrClosed
	}
	if !exists {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (ds *DataStore) Delete(key string) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return ErrClosed
	}
	delete(ds.data, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (ds *DataStore) Keys() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	keys := make([]string, 0, len(ds.data))
	for k := range ds.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Flush writes pending changes to disk now.
func (ds *DataStore) Flush() error {
	ds.mu.RLock()
	closed := ds.closed
	ds.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return ds.save()
}

// Close stops autosave and performs a final flush.
func (ds *DataStore) Close() error {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil
	}
	ds.closed = true
	ds.mu.Unlock()

	close(ds.stop)
	ds.wg.Wait()
	return ds.save()
}

func (ds *DataStore) save() error {
	ds.saveMu.Lock()
	defer ds.saveMu.Unlock()

	ds.mu.RLock()
	payload, err := json.MarshalIndent(ds.data, "", "  ")
	ds.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	sum := checksum(payload)
	if sum == ds.lastChecksum {
		return nil
	}

	if ds.cfg.BackupCount > 0 {
		if err := ds.backup(); err != nil {
			ds.log.Warn("backup failed", logx.Err(err))
		}
	}
	if err := writeFileAtomic(ds.cfg.FilePath, payload); err != nil {
		return err
	}

	written, err := os.ReadFile(ds.cfg.FilePath)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !bytes.Equal(written, payload) {
		return fmt.Errorf("verify: checksum mismatch")
	}

	ds.lastChecksum = sum
	return nil
}

func (ds *DataStore) load() error {
	raw, err := os.ReadFile(ds.cfg.FilePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", ds.cfg.FilePath, err)
	}
	data := make(map[string]json.RawMessage)
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("invalid JSON in %s: %w", ds.cfg.FilePath, err)
		}
	}
	ds.mu.Lock()
	ds.data = data
	ds.lastChecksum = checksum(raw)
	ds.mu.Unlock()
	return nil
}

func (ds *DataStore) autoSave() {
	defer ds.wg.Done()

	ticker := time.NewTicker(ds.cfg.AutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ds.stop:
			return
		case <-ticker.C:
			if err := ds.save(); err != nil {
				ds.log.Error("autosave failed", logx.Err(err))
			}
		}
	}
}

// backup copies the current file to <file>.backup.<timestamp> and prunes
// the oldest copies beyond BackupCount.
func (ds *DataStore) backup() error {
	src, err := os.Open(ds.cfg.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	name := fmt.Sprintf("%s.backup.%s", ds.cfg.FilePath, time.Now().Format("20060102_150405.000000"))
	dst, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	matches, err := filepath.Glob(ds.cfg.FilePath + ".backup.*")
	if err != nil || len(matches) <= ds.cfg.BackupCount {
		return err
	}
	// Timestamp suffixes sort chronologically.
	slices.Sort(matches)
	for _, old := range matches[:len(matches)-ds.cfg.BackupCount] {
		_ = os.Remove(old)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func checksum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
