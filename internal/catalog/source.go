package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"

	"plotcypher/internal/models"
	"plotcypher/internal/util"
)

const DefaultFetchTimeout = 10 * time.Second

// DataSourceError wraps any fetch or decode failure for a category's
// catalog.
type DataSourceError struct {
	Category models.Category
	Err      error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Category, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// ErrNoPuzzle is returned when a category has no usable catalog entries for
// today.
var ErrNoPuzzle = errors.New("no puzzle available")

// Source loads the full catalog for a category. Implementations return a
// valid (possibly empty) slice or an error, never both nil.
type Source interface {
	Load(ctx context.Context, cat models.Category) ([]models.MediaItem, error)
}

// HTTPSource fetches category JSON documents from a static file host.
type HTTPSource struct {
	client *resty.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	return &HTTPSource{client: client}
}

func (s *HTTPSource) Load(ctx context.Context, cat models.Category) ([]models.MediaItem, error) {
	resp, err := s.client.R().SetContext(ctx).Get("/" + cat.SourceFile())
	if err != nil {
		return nil, &DataSourceError{Category: cat, Err: err}
	}
	if resp.IsError() {
		return nil, &DataSourceError{Category: cat, Err: fmt.Errorf("unexpected status %s", resp.Status())}
	}
	return decodeCatalog(cat, resp.Body())
}

// FileSource reads category JSON documents from a local directory, the
// development-mode counterpart of HTTPSource.
type FileSource struct {
	dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (s *FileSource) Load(ctx context.Context, cat models.Category) ([]models.MediaItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DataSourceError{Category: cat, Err: err}
	}
	data, err := os.ReadFile(filepath.Join(s.dir, cat.SourceFile()))
	if err != nil {
		return nil, &DataSourceError{Category: cat, Err: err}
	}
	return decodeCatalog(cat, data)
}

func decodeCatalog(cat models.Category, data []byte) ([]models.MediaItem, error) {
	var raw []models.RawMediaItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DataSourceError{Category: cat, Err: err}
	}
	return normalize(cat, raw), nil
}

// normalize validates raw records and backfills the legacy Year field.
// Malformed records are dropped with a warning rather than failing the
// whole load.
func normalize(cat models.Category, raw []models.RawMediaItem) []models.MediaItem {
	return lo.FilterMap(raw, func(r models.RawMediaItem, _ int) (models.MediaItem, bool) {
		if r.ID == 0 || r.Name == "" || r.Description == "" || (r.ReleaseYear == 0 && r.Year == 0) {
			util.LogWarn("Dropping malformed %s record (id=%d, name=%q): missing required fields", cat, r.ID, r.Name)
			return models.MediaItem{}, false
		}
		year := r.ReleaseYear
		if year == 0 {
			year = r.Year
		}
		return models.MediaItem{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			ReleaseYear: year,
			Genre:       r.Genres,
		}, true
	})
}
