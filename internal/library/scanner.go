package library

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mediahub/mediahub/internal/logging"
	"github.com/mediahub/mediahub/internal/metrics"
)

// Scanner walks the configured roots and produces catalog snapshots.
type Scanner struct {
	resolver *Resolver
}

// NewScanner creates a Scanner over the given resolver's roots.
func NewScanner(resolver *Resolver) *Scanner {
	return &Scanner{resolver: resolver}
}

// Scan walks every root and returns a fresh catalog. A directory that
// cannot be read is logged and skipped without aborting its siblings
// or the other roots.
func (s *Scanner) Scan(ctx context.Context) (*Catalog, error) {
	start := time.Now()
	var entries []CatalogEntry

	for _, root := range s.resolver.Roots() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries = append(entries, s.scanDir(ctx, root, root)...)
	}

	cat := newCatalog(entries)
	metrics.SetLibrarySize(len(entries))
	metrics.RecordLibraryScan(time.Since(start))
	logging.Info("library scan complete",
		zap.Int("entries", len(entries)),
		zap.Int("roots", len(s.resolver.Roots())),
		zap.Duration("duration", time.Since(start)))
	return cat, nil
}

func (s *Scanner) scanDir(ctx context.Context, dir, root string) []CatalogEntry {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		logging.Warn("skipping unreadable directory",
			zap.String("dir", dir), zap.Error(err))
		return nil
	}

	var entries []CatalogEntry
	for _, de := range dirents {
		if ctx.Err() != nil {
			return entries
		}

		full := filepath.Join(dir, de.Name())
		if de.IsDir() {
			entries = append(entries, s.scanDir(ctx, full, root)...)
			continue
		}

		mediaType := TypeForName(de.Name())
		if mediaType == TypeUnknown {
			continue
		}

		info, err := de.Info()
		if err != nil {
			logging.Warn("skipping unstatable file",
				zap.String("path", full), zap.Error(err))
			continue
		}

		rel, err := filepath.Rel(root, full)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		entries = append(entries, CatalogEntry{
			ID:           EntryID(rel),
			Name:         de.Name(),
			RelativePath: rel,
			Type:         mediaType,
			IsVR:         mediaType == TypeVideo && IsVRName(de.Name()),
			Size:         info.Size(),
			LastModified: info.ModTime(),
			Metadata:     ExtractMetadata(full, mediaType),
		})
	}
	return entries
}

// LookupFile resolves a single root-relative path to an entry without
// consulting a catalog snapshot. Unlike Scan it also serves files with
// unsupported extensions, classified as unknown.
func (s *Scanner) LookupFile(relativePath string) (*CatalogEntry, error) {
	abs, _, err := s.resolver.Resolve(relativePath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, ErrNotFound
	}

	rel := filepath.ToSlash(relativePath)
	mediaType := TypeForName(abs)
	return &CatalogEntry{
		ID:           EntryID(rel),
		Name:         filepath.Base(abs),
		RelativePath: rel,
		Type:         mediaType,
		IsVR:         mediaType == TypeVideo && IsVRName(filepath.Base(abs)),
		Size:         info.Size(),
		LastModified: info.ModTime(),
		Metadata:     ExtractMetadata(abs, mediaType),
	}, nil
}
