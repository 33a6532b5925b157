// Package artifact owns the scratch directory where processed record sets
// are persisted as downloadable CSVs. No other component writes or deletes
// under the scratch directory.
package artifact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"diary-service/internal/models"
)

// ErrNotFound is returned when an artifact does not exist or has already
// expired. Retrieval misses are a soft condition, never a server fault.
var ErrNotFound = errors.New("artifact not found")

// utf8BOM makes spreadsheet tools interpret non-ASCII text correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// validName constrains retrievable names to what WriteCSV generates, which
// also keeps path traversal out of the scratch directory.
var validName = regexp.MustCompile(`^[a-z0-9_-]+\.csv$`)

// Info describes a live artifact.
type Info struct {
	Name string    `json:"name"`
	Size int64     `json:"size"`
	Age  float64   `json:"age_seconds"`
	Time time.Time `json:"created_at"`
}

// Store manages artifacts under a single scratch directory with a fixed
// time-to-live. Expired artifacts are swept lazily on retrieval and listing,
// not by a background timer. Concurrent writers need no coordination because
// names are uuid-based; a reader racing a sweep treats a file that vanished
// after listing as not found.
type Store struct {
	dir    string
	ttl    time.Duration
	logger *zap.Logger
}

// Dir returns the scratch directory path.
func (s *Store) Dir() string { return s.dir }

// NewStore creates the scratch directory if needed.
func NewStore(dir string, ttl time.Duration, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Store{dir: dir, ttl: ttl, logger: logger}, nil
}

// WriteCSV persists a record set as a BOM-prefixed CSV artifact and returns
// the generated artifact name. The header is the source columns plus the
// derived ones; nil derived fields serialize as empty cells.
func (s *Store) WriteCSV(prefix string, records models.RecordSet) (string, error) {
	name := fmt.Sprintf("%s-%s.csv", prefix, uuid.New().String())
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}

	w := csv.NewWriter(f)
	header := append(append([]string{}, models.SourceColumns...),
		models.ColShiftType, models.ColDurationMin)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write artifact header: %w", err)
	}
	for i := range records {
		if err := w.Write(recordRow(&records[i])); err != nil {
			return "", fmt.Errorf("write artifact row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush artifact: %w", err)
	}

	s.logger.Info("artifact written",
		zap.String("artifact", name),
		zap.Int("rows", len(records)))
	return name, nil
}

// Read sweeps expired artifacts, then returns the artifact's exact persisted
// bytes. Missing, expired, or concurrently swept artifacts all surface as
// ErrNotFound. Successful retrievals are logged for egress auditing.
func (s *Store) Read(name string) ([]byte, error) {
	s.Sweep()

	if !validName.MatchString(name) {
		return nil, ErrNotFound
	}
	path := filepath.Join(s.dir, name)

	fi, err := os.Stat(path)
	if err != nil {
		return nil, ErrNotFound
	}
	if time.Since(fi.ModTime()) > s.ttl {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Swept or removed between the stat and the read.
		return nil, ErrNotFound
	}

	s.logger.Info("artifact retrieved",
		zap.String("artifact", name),
		zap.Time("retrieved_at", time.Now()),
		zap.Int("bytes", len(data)))
	return data, nil
}

// List sweeps, then describes the remaining live artifacts.
func (s *Store) List() ([]Info, error) {
	s.Sweep()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list scratch dir: %w", err)
	}

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !validName.MatchString(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue // disappeared after listing
		}
		infos = append(infos, Info{
			Name: e.Name(),
			Size: fi.Size(),
			Age:  time.Since(fi.ModTime()).Seconds(),
			Time: fi.ModTime(),
		})
	}
	return infos, nil
}

// Sweep deletes artifacts older than the TTL and returns how many went.
func (s *Store) Sweep() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("sweep: cannot read scratch dir", zap.Error(err))
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if time.Since(fi.ModTime()) <= s.ttl {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			s.logger.Warn("sweep: remove failed",
				zap.String("artifact", e.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("swept expired artifacts", zap.Int("removed", removed))
	}
	return removed
}

func recordRow(r *models.DiaryRecord) []string {
	row := []string{
		r.From, r.Until, r.Ring, r.Category, r.Description,
		r.Shift, r.Duration,
		strconv.FormatBool(r.IgnoreEntry.Bool()),
		strconv.FormatBool(r.InternalUseOnly.Bool()),
		"", "",
	}
	if r.ShiftType != nil {
		row[9] = *r.ShiftType
	}
	if r.DurationMin != nil {
		row[10] = strconv.FormatFloat(*r.DurationMin, 'f', -1, 64)
	}
	return row
}
