package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
)

const (
	// DefaultMaxFiles caps the total number of files a scan will return.
	DefaultMaxFiles = 5000

	// maxFileSize is the largest file considered for indexing (1 MB).
	maxFileSize = 1 << 20

	// hashBufferSize bounds the per-file read buffer used while hashing.
	hashBufferSize = 64 * 1024
)

// DefaultExcludes are applied when no exclusion patterns are configured.
var DefaultExcludes = []string{
	"/.git/",
	"/Library/",
	"/Temp/",
	"/obj/",
	"/bin/",
	"/Packages/",
	"/node_modules/",
}

// Config controls file discovery.
type Config struct {
	Roots           []string // Root folders to scan
	ExcludePatterns []string // Case-sensitive substrings matched against normalized paths
	Extensions      []string // File extensions to include, e.g. [".cs"]
	MaxFiles        int      // Cap on total discovered files (0 = DefaultMaxFiles)
	UseGitignore    bool     // Also honor a .gitignore at each root
}

// FileInfo holds metadata about a discovered source file.
type FileInfo struct {
	Path    string // Separator-normalized path
	Hash    string // Hex-encoded SHA-256 of the file content
	ModTime time.Time
	Size    int64
}

// Scanner discovers candidate source files under the configured roots.
type Scanner struct {
	cfg Config
	log *slog.Logger
}

// New creates a Scanner. Zero-value config fields fall back to defaults.
func New(cfg Config) *Scanner {
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".cs"}
	}
	if len(cfg.ExcludePatterns) == 0 {
		cfg.ExcludePatterns = DefaultExcludes
	}
	return &Scanner{cfg: cfg, log: slog.Default()}
}

// Scan enumerates and hashes candidate files under the configured roots.
// It is cooperative: cancellation is checked per file, and a cancelled scan
// returns the partial results gathered so far together with ctx.Err().
// Per-file I/O failures are logged and skipped, never aborting the scan.
// The progress callback, if non-nil, receives fractions in [0,1].
func (s *Scanner) Scan(ctx context.Context, progress func(float64)) ([]FileInfo, error) {
	candidates := s.discover(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]FileInfo, 0, len(candidates))
	for i, path := range candidates {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		info, err := s.hashFile(path)
		if err != nil {
			s.log.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		results = append(results, info)

		if progress != nil {
			progress(float64(i+1) / float64(len(candidates)))
		}
	}

	if progress != nil {
		progress(1.0)
	}
	return results, nil
}

// discover walks the roots collecting candidate paths, applying exclusion
// rules and the file cap. Walk errors on individual entries are skipped.
func (s *Scanner) discover(ctx context.Context) []string {
	var candidates []string

	for _, root := range s.cfg.Roots {
		if ctx.Err() != nil || len(candidates) >= s.cfg.MaxFiles {
			break
		}

		absRoot, err := filepath.Abs(root)
		if err != nil {
			s.log.Warn("skipping unresolvable root", "root", root, "error", err)
			continue
		}

		var gi *ignore.GitIgnore
		if s.cfg.UseGitignore {
			gi = loadGitignore(absRoot)
		}

		_ = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries, keep walking
			}
			if ctx.Err() != nil {
				return filepath.SkipAll
			}

			norm := filepath.ToSlash(path)
			if d.IsDir() {
				if path == absRoot {
					return nil
				}
				if s.excluded(norm + "/") {
					return filepath.SkipDir
				}
				if gi != nil {
					if rel, relErr := filepath.Rel(absRoot, path); relErr == nil && gi.MatchesPath(rel) {
						return filepath.SkipDir
					}
				}
				return nil
			}

			// Skip symlinks.
			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}
			if !s.hasAllowedExt(path) || s.excluded(norm) {
				return nil
			}
			if gi != nil {
				if rel, relErr := filepath.Rel(absRoot, path); relErr == nil && gi.MatchesPath(rel) {
					return nil
				}
			}

			candidates = append(candidates, path)
			if len(candidates) >= s.cfg.MaxFiles {
				return filepath.SkipAll
			}
			return nil
		})
	}

	return candidates
}

// excluded reports whether a separator-normalized path contains any of the
// configured exclusion substrings. Matching is case-sensitive.
func (s *Scanner) excluded(normPath string) bool {
	for _, pattern := range s.cfg.ExcludePatterns {
		if strings.Contains(normPath, pattern) {
			return true
		}
	}
	return false
}

func (s *Scanner) hasAllowedExt(path string) bool {
	ext := filepath.Ext(path)
	for _, allowed := range s.cfg.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// hashFile computes the streamed SHA-256 content hash and captures file
// metadata. Oversized and empty files are reported as errors by callers'
// skip-and-continue handling.
func (s *Scanner) hashFile(path string) (FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileInfo{}, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return FileInfo{}, err
	}
	if stat.Size() > maxFileSize {
		return FileInfo{}, errFileTooLarge
	}

	h := sha256.New()
	buf := make([]byte, hashBufferSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return FileInfo{}, err
	}

	return FileInfo{
		Path:    filepath.ToSlash(path),
		Hash:    hex.EncodeToString(h.Sum(nil)),
		ModTime: stat.ModTime(),
		Size:    stat.Size(),
	}, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
