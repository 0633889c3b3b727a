package library

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"go.uber.org/zap"

	"github.com/mediahub/mediahub/internal/logging"
	"github.com/mediahub/mediahub/internal/metrics"
)

// ExtractMetadata reads container/tag metadata for audio and video
// files. It never fails the caller: any parse error produces metadata
// with the filename stem as title and Error set. For images and
// unknown types it returns an empty metadata object without touching
// the file.
func ExtractMetadata(absPath string, mediaType MediaType) Metadata {
	if mediaType != TypeVideo && mediaType != TypeAudio {
		return Metadata{}
	}

	fallback := filenameStem(absPath)

	f, err := os.Open(absPath)
	if err != nil {
		logging.Warn("could not open file for metadata",
			zap.String("path", absPath), zap.Error(err))
		metrics.RecordMetadataFailure()
		return Metadata{Title: fallback, Error: "Failed to parse metadata"}
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		logging.Debug("could not parse metadata",
			zap.String("path", absPath), zap.Error(err))
		metrics.RecordMetadataFailure()
		return Metadata{Title: fallback, Error: "Failed to parse metadata"}
	}

	md := Metadata{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Year:   m.Year(),
	}
	if md.Title == "" {
		md.Title = fallback
	}
	if pic := m.Picture(); pic != nil {
		md.HasCoverArt = true
	}
	return md
}

func filenameStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
