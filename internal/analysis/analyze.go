package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nbmcp/nbmcp/internal/notebook"
	"github.com/nbmcp/nbmcp/internal/pysrc"
)

// ErrCellNotFound means a requested cell id is not in the notebook.
var ErrCellNotFound = errors.New("cell not found")

// cacheSlots bounds the analysis cache. A session rarely touches more
// than a handful of notebooks; 32 keeps repeat lookups hot without
// holding stale trees for files long closed.
const cacheSlots = 32

// Options control which cells enter an analysis.
type Options struct {
	// IncludeMarkdown keeps markdown cells in the analysis. They carry
	// no symbols but matter for context rendering.
	IncludeMarkdown bool
	// StripOutputs drops stored outputs before analysis so large result
	// blobs never reach the parser path.
	StripOutputs bool
}

// DefaultOptions is what every tool uses unless a caller overrides.
func DefaultOptions() Options {
	return Options{IncludeMarkdown: true, StripOutputs: true}
}

// Service analyzes notebooks and caches results keyed by file mtime.
// It is safe for concurrent use.
type Service struct {
	cache *lruCache
}

// NewService returns a ready analyzer.
func NewService() *Service {
	return &Service{cache: newLRUCache(cacheSlots)}
}

// Analyze parses the notebook at path and returns its cells, extracted
// symbols and dependency edges. Results are cached by (path, mtime,
// options); a touched file reanalyzes, an untouched one returns the
// cached tree. Callers must treat the result as read-only.
func (s *Service) Analyze(ctx context.Context, path string, opts Options) (*Analysis, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", notebook.ErrNotFound, path)
		}
		return nil, fmt.Errorf("analysis: stat %s: %w", path, err)
	}

	key := cacheKey{path: filepath.Clean(path), mtime: info.ModTime().UnixNano(), options: opts}
	if cached, ok := s.cache.get(key); ok {
		return cached, nil
	}

	result, err := analyzeNotebook(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	s.cache.put(key, result)
	return result, nil
}

func analyzeNotebook(ctx context.Context, path string, opts Options) (*Analysis, error) {
	nb, err := notebook.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.StripOutputs {
		nb.StripOutputs()
	}

	cells := make([]Cell, 0, len(nb.Cells))
	for i, raw := range nb.Cells {
		switch raw.CellType {
		case CellTypeCode:
		case CellTypeMarkdown:
			if !opts.IncludeMarkdown {
				continue
			}
		default:
			// raw cells and unknown types carry no executable state
			continue
		}

		source := string(raw.Source)
		cell := Cell{
			CellID:         cellID(raw.ID, i),
			Index:          i,
			CellType:       raw.CellType,
			Source:         source,
			ExecutionCount: raw.ExecutionCount,
			SourceHash:     hashText(source),
			Defines:        []string{},
			Uses:           []string{},
			Imports:        []string{},
		}

		if raw.CellType == CellTypeCode {
			sum := pysrc.Summarize(ctx, source)
			cell.Defines = sum.Defines
			cell.Uses = sum.Uses
			cell.Imports = sum.Imports
		}
		cells = append(cells, cell)
	}

	return &Analysis{
		Path:            filepath.Clean(path),
		NBFormat:        nb.NBFormat,
		NBFormatMinor:   nb.NBFormatMinor,
		Cells:           cells,
		DependencyEdges: BuildDependencyEdges(cells),
	}, nil
}

// cellID prefers the stored id and falls back to a positional one for
// pre-4.5 notebooks that never wrote ids.
func cellID(stored string, index int) string {
	if id := strings.TrimSpace(stored); id != "" {
		return id
	}
	return fmt.Sprintf("cell_%d", index)
}

func hashText(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
