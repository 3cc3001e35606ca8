// Command blocklist-ingest builds the disposable email domain filter used by
// the API server to reject throwaway registration addresses. It streams one
// or more gzip-compressed domain lists (one domain per line), deduplicates
// them, and serializes a bloom filter to the output path given by -out.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

const (
	bloomFPR      = 0.0001
	progressEvery = 1_000_000
	maxDomainLen  = 253
)

func main() {
	var out string
	flag.StringVar(&out, "out", "blocklist.bloom", "output path for the serialized filter")
	flag.Parse()

	if flag.NArg() == 0 {
		slog.Error("at least one input file is required: blocklist-ingest -out filter.bloom domains1.gz [domains2.gz ...]")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, flag.Args(), out); err != nil {
		slog.Error("blocklist ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("blocklist ingest completed successfully")
}

func run(ctx context.Context, files []string, out string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: stream every list concurrently into a deduplicated domain set.
	slog.Info("collecting domains", slog.Int("files", len(files)))

	domains, err := collectDomains(ctx, files)
	if err != nil {
		return errors.Wrap(err, "collect domains")
	}
	if len(domains) == 0 {
		return errors.New("no domains found in input files")
	}

	slog.Info("domains collected", slog.Int("count", len(domains)))

	// Pass 2: size the filter to the exact domain count and fill it.
	filter := bloom.NewWithEstimates(uint(len(domains)), bloomFPR)
	for d := range domains {
		filter.AddString(d)
	}

	return writeFilter(filter, out)
}

// collectDomains streams each gzip file concurrently and merges the
// normalized domains into one set.
func collectDomains(ctx context.Context, files []string) (map[string]struct{}, error) {
	var (
		mu      sync.Mutex
		domains = make(map[string]struct{})
	)

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(collectFromFile(ctx, i, f, &mu, domains))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return domains, nil
}

func collectFromFile(ctx context.Context, idx int, path string, mu *sync.Mutex, domains map[string]struct{}) func() error {
	return func() error {
		// Batch into a local set first so the shared map lock is taken once
		// per file, not once per line.
		local := make(map[string]struct{})
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			d := normalizeDomain(line)
			if d == "" {
				return
			}
			local[d] = struct{}{}
			count++
			if count%progressEvery == 0 {
				slog.Info("progress",
					slog.Int("file", idx+1),
					slog.Uint64("domains", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d", idx+1)
		}

		mu.Lock()
		for d := range local {
			domains[d] = struct{}{}
		}
		mu.Unlock()

		slog.Info("file complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_lines", count),
			slog.Int("unique_domains", len(local)),
		)
		return nil
	}
}

// normalizeDomain lowercases and trims a raw list line. Comments, empty
// lines and values that cannot be a domain are dropped.
func normalizeDomain(line string) string {
	d := strings.ToLower(strings.TrimSpace(line))
	if d == "" || strings.HasPrefix(d, "#") {
		return ""
	}
	if len(d) > maxDomainLen || !strings.Contains(d, ".") || strings.ContainsAny(d, " @/") {
		return ""
	}
	return d
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

// writeFilter serializes the filter to out atomically via a temp file.
func writeFilter(filter *bloom.BloomFilter, out string) error {
	tmp := out + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "create %s", tmp)
	}

	n, err := filter.WriteTo(f)
	if err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write filter")
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp)
	}
	if err := os.Rename(tmp, out); err != nil {
		return errors.Wrapf(err, "rename %s", tmp)
	}

	slog.Info("filter written", slog.String("path", out), slog.Int64("bytes", n))
	return nil
}
