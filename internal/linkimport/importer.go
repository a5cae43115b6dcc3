// Package linkimport loads ordering links exported by another system from
// gzip-compressed CSV files.
//
// Each line is "customer_id,token,created_at[,agent_id]" with created_at in
// RFC 3339. Tokens exported in more than one file are ambiguous and skipped;
// detection runs in two passes with one bloom filter per file so the exports
// never have to fit in memory at once.
package linkimport

import (
	"bufio"
	"context"
	"math/bits"
	"os"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/orderdesk/internal/domain/link"
)

const (
	defaultBloomCapacity = 10_000_000
	bloomFPR             = 0.001
	defaultBatchSize     = 5_000
	progressEvery        = 1_000_000
	// Files are tracked in a uint bitmask.
	maxFiles = bits.UintSize
)

// Store persists imported links and reports how many were inserted.
type Store interface {
	Import(ctx context.Context, links []link.Link) (int64, error)
}

// Config tunes an Importer.
type Config struct {
	// ManagerID owns every imported link.
	ManagerID string
	// BloomCapacity is the expected number of tokens per file.
	BloomCapacity uint
	BatchSize     int
}

// Result summarizes an import run.
type Result struct {
	Lines    int64
	Invalid  int64
	Shared   int
	Inserted int64
}

// Importer runs the two-pass import.
type Importer struct {
	cfg   Config
	store Store
	lg    *zap.Logger
}

// New creates an Importer.
func New(cfg Config, store Store, lg *zap.Logger) (*Importer, error) {
	if cfg.ManagerID == "" {
		return nil, errors.New("manager id is required")
	}
	if cfg.BloomCapacity == 0 {
		cfg.BloomCapacity = defaultBloomCapacity
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Importer{cfg: cfg, store: store, lg: lg}, nil
}

// Run imports every file and returns the totals.
func (im *Importer) Run(ctx context.Context, files []string) (Result, error) {
	var res Result
	if len(files) == 0 {
		return res, errors.New("no input files")
	}
	if len(files) > maxFiles {
		return res, errors.Errorf("at most %d files per run, got %d", maxFiles, len(files))
	}

	im.lg.Info("Pass 1: building bloom filters", zap.Int("files", len(files)))
	filters, err := im.buildFilters(ctx, files)
	if err != nil {
		return res, errors.Wrap(err, "build bloom filters")
	}

	im.lg.Info("Pass 2: finding shared tokens")
	shared, err := im.findShared(ctx, files, filters)
	if err != nil {
		return res, errors.Wrap(err, "find shared tokens")
	}
	res.Shared = len(shared)
	im.lg.Info("Shared tokens found", zap.Int("count", len(shared)))

	for _, f := range files {
		if err := im.load(ctx, f, shared, &res); err != nil {
			return res, errors.Wrapf(err, "load %s", f)
		}
	}
	return res, nil
}

func (im *Importer) buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(im.cfg.BloomCapacity, bloomFPR)
			var count uint64
			err := streamGzFile(ctx, path, func(line string) {
				token, ok := tokenOf(line)
				if !ok {
					return
				}
				filter.AddString(token)
				if count++; count%progressEvery == 0 {
					im.lg.Info("Pass 1 progress", zap.Int("file", i+1), zap.Uint64("tokens", count))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findShared confirms bloom hits exactly: a token is shared only when it was
// actually read from two or more files.
func (im *Importer) findShared(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	candidates := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			found := make(map[string]uint)
			fileBit := uint(1) << uint(i)
			err := streamGzFile(ctx, path, func(line string) {
				token, ok := tokenOf(line)
				if !ok {
					return
				}
				for j, f := range filters {
					if j != i && f.TestString(token) {
						found[token] |= fileBit
						return
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan file %d", i+1)
			}
			candidates[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, c := range candidates {
		for token, mask := range c {
			merged[token] |= mask
		}
	}
	shared := make(map[string]struct{})
	for token, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			shared[token] = struct{}{}
		}
	}
	return shared, nil
}

func (im *Importer) load(ctx context.Context, path string, shared map[string]struct{}, res *Result) error {
	batch := make([]link.Link, 0, im.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := im.store.Import(ctx, batch)
		if err != nil {
			return err
		}
		res.Inserted += n
		batch = batch[:0]
		return nil
	}

	var flushErr error
	err := streamGzFile(ctx, path, func(line string) {
		if flushErr != nil || strings.TrimSpace(line) == "" {
			return
		}
		res.Lines++
		l, err := ParseLine(line, im.cfg.ManagerID)
		if err != nil {
			res.Invalid++
			im.lg.Debug("Skipping invalid line", zap.String("file", path), zap.Error(err))
			return
		}
		if _, ok := shared[l.Token]; ok {
			return
		}
		batch = append(batch, l)
		if len(batch) == im.cfg.BatchSize {
			flushErr = flush()
		}
	})
	if err != nil {
		return err
	}
	if flushErr != nil {
		return flushErr
	}
	if err := flush(); err != nil {
		return err
	}
	im.lg.Info("File imported", zap.String("file", path), zap.Int64("inserted_total", res.Inserted))
	return nil
}

// ParseLine parses one export line into a link owned by managerID.
func ParseLine(line, managerID string) (link.Link, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) < 3 || len(parts) > 4 {
		return link.Link{}, errors.Errorf("expected 3 or 4 fields, got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		return link.Link{}, errors.New("customer id is empty")
	}
	if parts[1] == "" {
		return link.Link{}, errors.New("token is empty")
	}
	createdAt, err := time.Parse(time.RFC3339, parts[2])
	if err != nil {
		return link.Link{}, errors.Wrap(err, "created_at")
	}

	l := link.Link{
		ID:         uuid.NewString(),
		ManagerID:  managerID,
		CustomerID: parts[0],
		Token:      parts[1],
		CreatedAt:  createdAt,
	}
	if len(parts) == 4 {
		l.AgentID = parts[3]
	}
	return l, nil
}

func tokenOf(line string) (string, bool) {
	_, rest, ok := strings.Cut(line, ",")
	if !ok {
		return "", false
	}
	token, _, _ := strings.Cut(rest, ",")
	token = strings.TrimSpace(token)
	return token, token != ""
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
