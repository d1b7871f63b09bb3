package statistic

import (
	"context"
	"os"
	"path/filepath"
	"rad/internal/models"
	"rad/internal/providers"
	"rad/internal/statistic/interfaces"
	"rad/internal/storage"
	"rad/internal/structures"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const archiveSuffix = ".day.zst"

// DailySnapshot is the on-disk shape of one archived leaderboard day.
type DailySnapshot struct {
	Date        string            `json:"date"`
	GeneratedAt int64             `json:"generated_at"`
	Entries     []models.TopEntry `json:"entries"`
}

// Archiver writes the daily leaderboard to compressed files so the status
// surface can serve past days without touching the store. Files are written
// atomically (tmp + sync + rename) and expired by age.
type Archiver struct {
	config     *structures.Config
	store      storage.Gateway
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewArchiver(config *structures.Config, store storage.Gateway, compressor interfaces.CompressorInterface, logger providers.Logger) *Archiver {
	return &Archiver{
		config:     config,
		store:      store,
		compressor: compressor,
		logger:     logger,
	}
}

func (a *Archiver) path(date string) string {
	return filepath.Join(a.config.Archive.Dir, date+archiveSuffix)
}

// WriteDaily snapshots one day's leaderboard. The read goes straight to the
// store: archives must not inherit cache staleness.
func (a *Archiver) WriteDaily(ctx context.Context, date string) error {
	entries, err := a.store.GetTopDaily(ctx, date, a.config.Archive.TopLimit)
	if err != nil {
		return err
	}

	snapshot := DailySnapshot{
		Date:        date,
		GeneratedAt: time.Now().Unix(),
		Entries:     entries,
	}
	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	data, err := a.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(a.config.Archive.Dir, 0o755); err != nil {
		return err
	}

	fileName := a.path(date)
	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

// ReadDaily loads one archived day. A missing file returns a nil snapshot,
// not an error.
func (a *Archiver) ReadDaily(date string) (*DailySnapshot, error) {
	data, err := os.ReadFile(a.path(date))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	decompressed, err := a.compressor.Decompress(data)
	if err != nil {
		return nil, err
	}

	var snapshot DailySnapshot
	if err := json.Unmarshal(decompressed, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Cleanup removes archives older than the configured TTL, judged by the
// date encoded in the file name. Zero TTL disables expiry.
func (a *Archiver) Cleanup(now time.Time) {
	if a.config.Archive.TTL == 0 {
		return
	}

	files, err := os.ReadDir(a.config.Archive.Dir)
	if err != nil {
		if !os.IsNotExist(err) {
			a.logger.Errorf(providers.TypeApp, "archive dir read failed: %s", err)
		}
		return
	}

	cutoff := now.Add(-a.config.Archive.TTL)
	for _, f := range files {
		name := f.Name()
		if !strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		day, err := time.Parse("2006-01-02", strings.TrimSuffix(name, archiveSuffix))
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(filepath.Join(a.config.Archive.Dir, name)); err != nil {
				a.logger.Errorf(providers.TypeApp, "archive cleanup failed for %s: %s", name, err)
			} else {
				a.logger.Infof(providers.TypeApp, "archive expired: %s", name)
			}
		}
	}
}

func (a *Archiver) Close() {
	a.compressor.Close()
}
