package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/knagel/codesage/internal/chunker"
	"github.com/knagel/codesage/internal/embedder"
	"github.com/knagel/codesage/internal/indexcache"
	"github.com/knagel/codesage/internal/parser"
	"github.com/knagel/codesage/internal/scanner"
	"github.com/knagel/codesage/internal/search"
	"github.com/knagel/codesage/internal/vectorstore"
	"github.com/knagel/codesage/pkg/types"
)

// State is the coordinator's lifecycle state:
// Idle -> Indexing -> {Ready, Error}, with Ready/Idle -> Indexing on the
// next mutating call.
type State int32

const (
	StateIdle State = iota
	StateIndexing
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIndexing:
		return "indexing"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Progress is a human-readable status notification with a fractional
// completion estimate in [0,1].
type Progress struct {
	Fraction float64
	Status   string
}

// StateChange notifies observers of a state transition.
type StateChange struct {
	Old State
	New State
}

// Statistics summarizes a completed indexing pass.
type Statistics struct {
	FilesScanned  int
	FilesIndexed  int
	FilesSkipped  int
	FilesFailed   int
	FilesRemoved  int
	UnitsIndexed  int
	Duration      time.Duration
	ErrorMessages []string
}

// Config carries the coordinator's tunables. All values come from the
// caller; nothing is read from process-wide state.
type Config struct {
	Scanner       scanner.Config
	MaxChunkTokens int
	Workers        int    // Embedding workers (default: NumCPU)
	StorePath      string // Vector store file
	CachePath      string // Index cache file
}

// Coordinator orchestrates full and incremental indexing as a cancellable
// state machine and owns the scanner, parser, chunker, embedder, vector
// store and index cache.
type Coordinator struct {
	cfg      Config
	parser   *parser.Parser
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	hybrid   *search.Hybrid
	log      *slog.Logger

	mu          sync.RWMutex // guards state, store, cache, everIndexed
	state       State
	store       *vectorstore.Store
	cache       *indexcache.Cache
	everIndexed bool

	lock     indexLock
	cancelMu sync.Mutex
	cancel   context.CancelFunc

	obsMu       sync.Mutex
	progressObs []func(Progress)
	stateObs    []func(StateChange)
}

// New creates a Coordinator and loads any previously persisted index.
// A non-empty persisted store starts the coordinator in Ready.
func New(cfg Config, emb embedder.Embedder) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	store := vectorstore.New(emb.Dimension())
	_ = store.Load(cfg.StorePath)
	cache := indexcache.New()
	_ = cache.Load(cfg.CachePath)

	c := &Coordinator{
		cfg:      cfg,
		parser:   parser.New(),
		chunker:  chunker.New(cfg.MaxChunkTokens),
		embedder: emb,
		log:      slog.Default(),
		state:    StateIdle,
		store:    store,
		cache:    cache,
	}
	c.hybrid = search.NewHybrid(func() search.VectorSearcher {
		return c.currentStore()
	}, emb)

	if store.Count() > 0 {
		c.state = StateReady
		c.everIndexed = true
	}
	return c
}

// OnProgress registers a progress observer.
func (c *Coordinator) OnProgress(fn func(Progress)) {
	c.obsMu.Lock()
	c.progressObs = append(c.progressObs, fn)
	c.obsMu.Unlock()
}

// OnStateChange registers a state-change observer.
func (c *Coordinator) OnStateChange(fn func(StateChange)) {
	c.obsMu.Lock()
	c.stateObs = append(c.stateObs, fn)
	c.obsMu.Unlock()
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// UnitCount returns the number of indexed units.
func (c *Coordinator) UnitCount() int {
	return c.currentStore().Count()
}

// FileCount returns the number of tracked files.
func (c *Coordinator) FileCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.Count()
}

// Searcher exposes the hybrid searcher for the retrieval orchestrator.
func (c *Coordinator) Searcher() *search.Hybrid {
	return c.hybrid
}

// RebuildIndex wipes the index and reprocesses every file under the given
// folders. It blocks until done or cancelled; run it on its own goroutine
// when the caller must not block. A concurrent mutating call is rejected
// as a warned no-op (nil statistics, nil error). Cancellation skips
// persistence and restores the prior stable state.
func (c *Coordinator) RebuildIndex(ctx context.Context, folders []string) (*Statistics, error) {
	if !c.lock.tryAcquire() {
		c.log.Warn("indexing already in progress, rebuild rejected")
		return nil, nil
	}
	defer c.lock.release()

	ctx = c.armCancel(ctx)
	defer c.disarmCancel()

	prior := c.beginIndexing()
	stats := &Statistics{}
	start := time.Now()

	c.notifyProgress(0, "Scanning files...")
	files, scanErr := c.scan(ctx, folders)
	if isCancelled(scanErr) {
		return c.abortPass(prior, stats)
	}

	stats.FilesScanned = len(files)

	// A rebuild stages into fresh stores; nothing of the old index
	// survives a completed pass.
	staged := vectorstore.New(c.embedder.Dimension())
	stagedCache := indexcache.New()

	if err := c.processFiles(ctx, files, staged, stagedCache, stats); isCancelled(err) {
		return c.abortPass(prior, stats)
	}

	if err := c.persistAndSwap(staged, stagedCache); err != nil {
		c.setState(StateError)
		return stats, err
	}

	stats.UnitsIndexed = staged.Count()
	stats.Duration = time.Since(start)
	c.notifyProgress(1, fmt.Sprintf("Indexed %d files (%d units)", stats.FilesIndexed, stats.UnitsIndexed))
	return stats, nil
}

// IncrementalUpdate rescans and reprocesses only inserted, changed and
// deleted files, diffing against the index cache. Same concurrency,
// cancellation and persistence rules as RebuildIndex.
func (c *Coordinator) IncrementalUpdate(ctx context.Context, folders []string) (*Statistics, error) {
	if !c.lock.tryAcquire() {
		c.log.Warn("indexing already in progress, update rejected")
		return nil, nil
	}
	defer c.lock.release()

	ctx = c.armCancel(ctx)
	defer c.disarmCancel()

	prior := c.beginIndexing()
	stats := &Statistics{}
	start := time.Now()

	c.notifyProgress(0, "Scanning files...")
	files, scanErr := c.scan(ctx, folders)
	if isCancelled(scanErr) {
		return c.abortPass(prior, stats)
	}

	stats.FilesScanned = len(files)

	// Stage all mutations on clones; the live index stays untouched
	// until the pass completes.
	c.mu.RLock()
	staged := c.store.Clone()
	stagedCache := c.cache.Clone()
	c.mu.RUnlock()

	scanned := make(map[string]scanner.FileInfo, len(files))
	for _, f := range files {
		scanned[f.Path] = f
	}

	// Paths known to the cache but absent from this scan are deletions.
	for _, path := range stagedCache.CachedFiles() {
		if _, ok := scanned[path]; !ok {
			staged.RemoveByFile(path)
			stagedCache.RemoveFile(path)
			stats.FilesRemoved++
		}
	}

	// Only changed or unseen files are reprocessed.
	var dirty []scanner.FileInfo
	for _, f := range files {
		if stagedCache.HasChanged(f.Path, f.Hash) {
			dirty = append(dirty, f)
		} else {
			stats.FilesSkipped++
		}
	}

	if err := c.processFiles(ctx, dirty, staged, stagedCache, stats); isCancelled(err) {
		return c.abortPass(prior, stats)
	}

	if err := c.persistAndSwap(staged, stagedCache); err != nil {
		c.setState(StateError)
		return stats, err
	}

	stats.UnitsIndexed = staged.Count()
	stats.Duration = time.Since(start)
	c.notifyProgress(1, fmt.Sprintf("Updated %d files, removed %d (%d units total)",
		stats.FilesIndexed, stats.FilesRemoved, stats.UnitsIndexed))
	return stats, nil
}

// Query answers a natural-language query against the current index. It
// requires state Ready; otherwise it returns an empty result list with a
// logged warning, never an error.
func (c *Coordinator) Query(ctx context.Context, text string, topK int) []types.SearchResult {
	if c.State() != StateReady {
		c.log.Warn("query before index is ready", "state", c.State().String())
		return nil
	}

	results, err := c.hybrid.Search(ctx, text, topK)
	if err != nil {
		c.log.Warn("query failed", "error", err)
		return nil
	}
	return results
}

// ClearIndex wipes both stores, removes the persisted artifacts and
// returns to Idle. Rejected as a warned no-op while indexing.
func (c *Coordinator) ClearIndex() error {
	if !c.lock.tryAcquire() {
		c.log.Warn("indexing in progress, clear rejected")
		return nil
	}
	defer c.lock.release()

	c.mu.Lock()
	c.store = vectorstore.New(c.embedder.Dimension())
	c.cache = indexcache.New()
	c.everIndexed = false
	c.mu.Unlock()

	if err := os.Remove(c.cfg.StorePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove store file: %w", err)
	}
	if err := os.Remove(c.cfg.CachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache file: %w", err)
	}

	c.hybrid.InvalidateCache()
	c.setState(StateIdle)
	return nil
}

// CancelIndexing cooperatively cancels an active indexing pass. A no-op
// when nothing is running.
func (c *Coordinator) CancelIndexing() {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// scan runs the scanner, forwarding fractional progress into the first
// third of the overall pass.
func (c *Coordinator) scan(ctx context.Context, folders []string) ([]scanner.FileInfo, error) {
	cfg := c.cfg.Scanner
	if len(folders) > 0 {
		cfg.Roots = folders
	}
	sc := scanner.New(cfg)
	return sc.Scan(ctx, func(frac float64) {
		c.notifyProgress(frac*0.3, "Scanning files...")
	})
}

// processFiles runs the parse -> chunk -> embed -> store pipeline for each
// file on a bounded worker pool. Per-file failures are logged, counted and
// skipped; only cancellation aborts the pass.
func (c *Coordinator) processFiles(ctx context.Context, files []scanner.FileInfo,
	staged *vectorstore.Store, stagedCache *indexcache.Cache, stats *Statistics) error {

	if len(files) == 0 {
		return ctx.Err()
	}

	var (
		mu        sync.Mutex
		processed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	for _, f := range files {
		// Cancellation is checked at file-level granularity.
		if err := gctx.Err(); err != nil {
			break
		}

		g.Go(func() error {
			err := c.processFile(gctx, f, staged, stagedCache)

			mu.Lock()
			defer mu.Unlock()
			processed++
			if err != nil {
				if isCancelled(err) {
					return err
				}
				stats.FilesFailed++
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", f.Path, err))
				c.log.Warn("failed to index file", "path", f.Path, "error", err)
				return nil
			}
			stats.FilesIndexed++
			frac := 0.3 + 0.65*float64(processed)/float64(len(files))
			c.notifyProgress(frac, fmt.Sprintf("Indexing %s", f.Path))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// processFile replaces all of a file's entries together: remove, parse,
// chunk, embed, reinsert, then record the owned ids in the cache. This
// keeps the cache's owned-id set exactly equal to the store's entries for
// the file.
func (c *Coordinator) processFile(ctx context.Context, f scanner.FileInfo,
	staged *vectorstore.Store, stagedCache *indexcache.Cache) error {

	units, err := c.parser.ParseFile(f.Path)
	if err != nil {
		return err
	}
	units = c.chunker.SplitAll(units)

	embedded := make([]vectorstore.Entry, 0, len(units))
	ids := make([]string, 0, len(units))
	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return err
		}
		vec, err := c.embedder.Embed(ctx, embeddingText(unit))
		if err != nil {
			return fmt.Errorf("embed unit %s: %w", unit.ID, err)
		}
		embedded = append(embedded, vectorstore.Entry{ID: unit.ID, Vector: vec, Unit: unit})
		ids = append(ids, unit.ID)
	}

	// All of the file's entries land atomically with respect to the
	// cache bookkeeping.
	staged.RemoveByFile(f.Path)
	for _, e := range embedded {
		staged.Upsert(e.ID, e.Vector, e.Unit)
	}
	stagedCache.UpdateFile(f.Path, f.Hash, f.ModTime, ids)
	return nil
}

// embeddingText combines the unit's name, documentation and content into
// the text handed to the embedder.
func embeddingText(u types.CodeUnit) string {
	if u.Summary == "" {
		return u.Name + "\n" + u.Content
	}
	return u.Name + "\n" + u.Summary + "\n" + u.Content
}

// persistAndSwap writes both staged stores to disk and swaps them in as
// the live index. Only a fully completed pass reaches this point.
func (c *Coordinator) persistAndSwap(staged *vectorstore.Store, stagedCache *indexcache.Cache) error {
	c.notifyProgress(0.95, "Saving index...")

	if err := staged.Save(c.cfg.StorePath); err != nil {
		return fmt.Errorf("save vector store: %w", err)
	}
	if err := stagedCache.Save(c.cfg.CachePath); err != nil {
		return fmt.Errorf("save index cache: %w", err)
	}

	c.mu.Lock()
	c.store = staged
	c.cache = stagedCache
	c.everIndexed = true
	c.mu.Unlock()

	c.hybrid.InvalidateCache()
	c.setState(StateReady)
	return nil
}

// beginIndexing transitions to Indexing and returns the stable state to
// restore on cancellation: Ready once anything has ever been indexed,
// Idle for a cancelled first-ever rebuild.
func (c *Coordinator) beginIndexing() State {
	c.mu.RLock()
	prior := StateIdle
	if c.everIndexed {
		prior = StateReady
	}
	c.mu.RUnlock()

	c.setState(StateIndexing)
	return prior
}

// abortPass discards partial work after a cancellation. Nothing was
// persisted; the live index is untouched.
func (c *Coordinator) abortPass(prior State, stats *Statistics) (*Statistics, error) {
	c.log.Info("indexing cancelled, discarding partial work")
	c.notifyProgress(0, "Indexing cancelled")
	c.setState(prior)
	return stats, nil
}

func (c *Coordinator) currentStore() *vectorstore.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

func (c *Coordinator) setState(next State) {
	c.mu.Lock()
	old := c.state
	c.state = next
	c.mu.Unlock()

	if old == next {
		return
	}
	c.obsMu.Lock()
	observers := make([]func(StateChange), len(c.stateObs))
	copy(observers, c.stateObs)
	c.obsMu.Unlock()
	for _, fn := range observers {
		fn(StateChange{Old: old, New: next})
	}
}

func (c *Coordinator) notifyProgress(frac float64, status string) {
	c.obsMu.Lock()
	observers := make([]func(Progress), len(c.progressObs))
	copy(observers, c.progressObs)
	c.obsMu.Unlock()
	for _, fn := range observers {
		fn(Progress{Fraction: frac, Status: status})
	}
}

// armCancel derives the pass context and wires CancelIndexing to it.
func (c *Coordinator) armCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelMu.Lock()
	c.cancel = cancel
	c.cancelMu.Unlock()
	return ctx
}

func (c *Coordinator) disarmCancel() {
	c.cancelMu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.cancelMu.Unlock()
}

func isCancelled(err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
