package library

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func newTestLibrary(t *testing.T, roots ...string) *Library {
	t.Helper()
	resolver, err := NewResolver(roots)
	require.NoError(t, err)
	return NewLibrary(NewScanner(resolver))
}

func TestTypeForName(t *testing.T) {
	cases := map[string]MediaType{
		"movie.mp4":    TypeVideo,
		"MOVIE.MKV":    TypeVideo,
		"clip.webm":    TypeVideo,
		"song.mp3":     TypeAudio,
		"track.FLAC":   TypeAudio,
		"photo.jpeg":   TypeImage,
		"anim.gif":     TypeImage,
		"notes.txt":    TypeUnknown,
		"archive.zip":  TypeUnknown,
		"no-extension": TypeUnknown,
	}
	for name, want := range cases {
		assert.Equal(t, want, TypeForName(name), name)
	}
}

func TestIsVRName(t *testing.T) {
	assert.True(t, IsVRName("movie_360_edit.mp4"))
	assert.True(t, IsVRName("MOVIE_VR.MP4"))
	assert.True(t, IsVRName("dive.insta360.mkv"))
	assert.True(t, IsVRName("clip_vr180.mp4"))
	assert.False(t, IsVRName("movie_edit.mp4"))
	assert.False(t, IsVRName("180days.mp4"))
}

func TestEntryIDRoundTrip(t *testing.T) {
	rel := "videos/series/s01 e02.mkv"
	id := EntryID(rel)
	decoded, err := DecodeEntryID(id)
	require.NoError(t, err)
	assert.Equal(t, rel, decoded)
}

func TestScanFindsMediaAndSkipsRest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "videos", "movie.mp4"), []byte("vid"))
	writeFile(t, filepath.Join(root, "videos", "trip_360.mp4"), []byte("vr"))
	writeFile(t, filepath.Join(root, "music", "song.mp3"), []byte("aud"))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("nope"))

	lib := newTestLibrary(t, root)
	cat, err := lib.Rescan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, cat.Len())

	byPath := map[string]CatalogEntry{}
	for _, e := range cat.Entries() {
		byPath[e.RelativePath] = e
	}

	movie := byPath["videos/movie.mp4"]
	assert.Equal(t, TypeVideo, movie.Type)
	assert.False(t, movie.IsVR)
	assert.Equal(t, int64(3), movie.Size)
	assert.Equal(t, EntryID("videos/movie.mp4"), movie.ID)

	vr := byPath["videos/trip_360.mp4"]
	assert.True(t, vr.IsVR)

	song := byPath["music/song.mp3"]
	assert.Equal(t, TypeAudio, song.Type)
	// Garbage bytes are not a valid container; fallback title applies.
	assert.Equal(t, "song", song.Metadata.Title)
	assert.Equal(t, "Failed to parse metadata", song.Metadata.Error)
}

func TestRescanIsStable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "one.mp4"), []byte("1"))
	writeFile(t, filepath.Join(root, "b", "two.flac"), []byte("2"))
	writeFile(t, filepath.Join(root, "three.png"), []byte("3"))

	lib := newTestLibrary(t, root)
	first, err := lib.Rescan(context.Background())
	require.NoError(t, err)
	second, err := lib.Rescan(context.Background())
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())
	for i, a := range first.Entries() {
		b := second.Entries()[i]
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, a.RelativePath, b.RelativePath)
		assert.Equal(t, a.Type, b.Type)
		assert.Equal(t, a.IsVR, b.IsVR)
	}
}

func TestScanToleratesUnreadableSubdir(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits not enforced")
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok", "movie.mp4"), []byte("vid"))
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "hidden.mp4"), []byte("vid"))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	lib := newTestLibrary(t, root)
	cat, err := lib.Rescan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, cat.Len())
	assert.Equal(t, "ok/movie.mp4", cat.Entries()[0].RelativePath)
}

func TestResolverRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.mp4"), []byte("no"))
	writeFile(t, filepath.Join(root, "movie.mp4"), []byte("yes"))

	resolver, err := NewResolver([]string{root})
	require.NoError(t, err)

	_, _, err = resolver.Resolve("../" + filepath.Base(outside) + "/secret.mp4")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = resolver.Resolve(filepath.Join(outside, "secret.mp4"))
	assert.ErrorIs(t, err, ErrNotFound)

	abs, _, err := resolver.Resolve("movie.mp4")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))
}

func TestResolverRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks not reliable on windows")
	}

	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.mp4"), []byte("no"))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.mp4"), filepath.Join(root, "link.mp4")))

	resolver, err := NewResolver([]string{root})
	require.NoError(t, err)

	_, _, err = resolver.Resolve("link.mp4")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMultiRootResolutionOrder(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeFile(t, filepath.Join(rootA, "shared.mp4"), []byte("aaa"))
	writeFile(t, filepath.Join(rootB, "shared.mp4"), []byte("bbbbbb"))

	resolver, err := NewResolver([]string{rootA, rootB})
	require.NoError(t, err)

	abs, root, err := resolver.Resolve("shared.mp4")
	require.NoError(t, err)
	assert.Equal(t, resolver.Roots()[0], root)
	info, err := os.Stat(abs)
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size())
}

func TestLookupFileUnsupportedExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "subs", "movie.srt"), []byte("1\n00:00 --> 00:01\nhi"))

	lib := newTestLibrary(t, root)
	entry, err := lib.LookupFile("subs/movie.srt")
	require.NoError(t, err)
	assert.Equal(t, TypeUnknown, entry.Type)
	assert.Equal(t, "movie.srt", entry.Name)

	_, err = lib.LookupFile("subs/missing.srt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtractMetadataImageIsNoop(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "photo.jpg")
	writeFile(t, path, []byte("not a real jpeg"))

	md := ExtractMetadata(path, TypeImage)
	assert.Equal(t, Metadata{}, md)
}
