package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mediahub/mediahub/internal/logging"
	"github.com/mediahub/mediahub/internal/metrics"
)

// Package-level compiled regex for Range header parsing. Only the
// first range of a multi-range request is honored.
var rangeRegex = regexp.MustCompile(`^bytes=(\d*)-(\d*)`)

var mimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

var errUnsatisfiableRange = errors.New("unsatisfiable range")

// parseByteRange interprets a Range header against a file of the given
// size. hasRange is false when the header is absent; an unparseable or
// unsatisfiable header returns errUnsatisfiableRange.
func parseByteRange(header string, size int64) (start, end int64, hasRange bool, err error) {
	if header == "" {
		return 0, 0, false, nil
	}

	matches := rangeRegex.FindStringSubmatch(strings.TrimSpace(header))
	if matches == nil {
		return 0, 0, true, errUnsatisfiableRange
	}
	startStr, endStr := matches[1], matches[2]
	if startStr == "" && endStr == "" {
		return 0, 0, true, errUnsatisfiableRange
	}

	if startStr == "" {
		// Suffix form: last N bytes.
		suffix, _ := strconv.ParseInt(endStr, 10, 64)
		start = size - suffix
		if start < 0 {
			start = 0
		}
		if start >= size {
			return 0, 0, true, errUnsatisfiableRange
		}
		return start, size - 1, true, nil
	}

	start, _ = strconv.ParseInt(startStr, 10, 64)
	if start >= size {
		return 0, 0, true, errUnsatisfiableRange
	}

	end = size - 1
	if endStr != "" {
		end, _ = strconv.ParseInt(endStr, 10, 64)
		if end > size-1 {
			end = size - 1
		}
	}
	if start > end {
		return 0, 0, true, errUnsatisfiableRange
	}
	return start, end, true, nil
}

func contentTypeFor(path string) string {
	if ct, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// handleStream serves media bytes with HTTP range support. Bytes are
// forwarded through a bounded read window, so memory use is constant
// regardless of file size.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	pathParam := r.PathValue("path")
	if pathParam == "" {
		s.sendError(w, http.StatusBadRequest, "file path required")
		return
	}

	absPath, _, err := s.library.Resolver().Resolve(pathParam)
	if err != nil {
		metrics.RecordStream(0, http.StatusNotFound)
		s.sendError(w, http.StatusNotFound, "media file not found: "+pathParam)
		return
	}

	info, err := os.Stat(absPath)
	if err != nil {
		metrics.RecordStream(0, http.StatusNotFound)
		s.sendError(w, http.StatusNotFound, "media file not found: "+pathParam)
		return
	}
	size := info.Size()

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentTypeFor(absPath))

	// Empty files always get a plain 200; there is no byte range to
	// satisfy or reject.
	if size == 0 {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
		metrics.RecordStream(0, http.StatusOK)
		return
	}

	start, end, hasRange, err := parseByteRange(r.Header.Get("Range"), size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		metrics.RecordStream(0, http.StatusRequestedRangeNotSatisfiable)
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	var status int
	var length int64
	if hasRange {
		length = end - start + 1
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		status = http.StatusPartialContent
	} else {
		length = size
		status = http.StatusOK
	}
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))

	if r.Method == http.MethodHead {
		w.WriteHeader(status)
		metrics.RecordStream(0, status)
		return
	}

	f, err := os.Open(absPath)
	if err != nil {
		metrics.RecordStream(0, http.StatusInternalServerError)
		s.sendError(w, http.StatusInternalServerError, "could not open media file")
		return
	}
	defer f.Close()

	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			metrics.RecordStream(0, http.StatusInternalServerError)
			s.sendError(w, http.StatusInternalServerError, "could not seek media file")
			return
		}
	}

	w.WriteHeader(status)
	n, err := io.Copy(w, io.LimitReader(f, length))
	if err != nil {
		// Headers are committed; a disconnect mid-stream just ends
		// the copy.
		logging.Debug("stream interrupted",
			zap.String("path", pathParam),
			zap.Int64("sent", n),
			zap.Error(err))
	}
	metrics.RecordStream(n, status)
}
