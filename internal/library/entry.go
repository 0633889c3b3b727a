// Package library indexes media files under configured root directories.
package library

import (
	"encoding/base64"
	"path/filepath"
	"strings"
	"time"
)

// MediaType classifies an entry by file extension.
type MediaType string

const (
	TypeVideo   MediaType = "video"
	TypeAudio   MediaType = "audio"
	TypeImage   MediaType = "image"
	TypeUnknown MediaType = "unknown"
)

var extensionTypes = map[string]MediaType{
	".mp4":  TypeVideo,
	".mkv":  TypeVideo,
	".avi":  TypeVideo,
	".webm": TypeVideo,
	".mp3":  TypeAudio,
	".wav":  TypeAudio,
	".ogg":  TypeAudio,
	".flac": TypeAudio,
	".jpg":  TypeImage,
	".jpeg": TypeImage,
	".png":  TypeImage,
	".gif":  TypeImage,
}

// Filename stems containing any of these substrings mark a video as
// 360/VR content.
var vrTags = []string{"_vr", "_360", "_180", "vr180", "360video", "gear360", "insta360"}

// Metadata holds tag information extracted from a media container.
// Title always has a value; the rest are omitted when extraction
// failed or the field is absent from the file.
type Metadata struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist,omitempty"`
	Album       string  `json:"album,omitempty"`
	Year        int     `json:"year,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	HasCoverArt bool    `json:"hasCoverArt,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// CatalogEntry is one indexed media file.
type CatalogEntry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	RelativePath string    `json:"path"`
	Type         MediaType `json:"type"`
	IsVR         bool      `json:"isVR"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	Metadata     Metadata  `json:"metadata"`

	// Resume position for the requesting user, filled per request
	// when a progress store is configured.
	UserProgress *float64 `json:"userProgress,omitempty"`
}

// EntryID derives the stable identifier for a root-relative path.
// Relative paths are unique within one root, so IDs never collide
// there; identical sub-paths under different roots share an ID.
func EntryID(relativePath string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(filepath.ToSlash(relativePath)))
}

// DecodeEntryID reverses EntryID.
func DecodeEntryID(id string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// TypeForExtension classifies a file extension (with leading dot,
// any case).
func TypeForExtension(ext string) MediaType {
	if t, ok := extensionTypes[strings.ToLower(ext)]; ok {
		return t
	}
	return TypeUnknown
}

// TypeForName classifies a file name by its extension.
func TypeForName(name string) MediaType {
	return TypeForExtension(filepath.Ext(name))
}

// IsVRName reports whether a video filename is tagged as VR content.
// The match is case-insensitive and runs on the stem only.
func IsVRName(name string) bool {
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, tag := range vrTags {
		if strings.Contains(stem, tag) {
			return true
		}
	}
	return false
}
