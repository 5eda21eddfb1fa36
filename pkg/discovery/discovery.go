// Package discovery enumerates candidate input images from the dataset's
// per-artist folder layout. Each result maps deterministically to one filename
// key, which the store uses for idempotent upserts.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is one candidate input: its grouping label and absolute path.
type File struct {
	Artist string
	Path   string
}

// Filename returns the unique store key for this file.
func (f File) Filename() string {
	return filepath.Base(f.Path)
}

// Source reads artist folders under a dataset root.
type Source struct {
	// Root is the parent folder holding one subfolder per artist.
	Root string

	// PerArtist caps how many files are taken per artist; 0 takes all.
	PerArtist int
}

// ByArtists returns the files for the named artists, sorted by filename within
// each artist so repeated runs enumerate identically.
func (s *Source) ByArtists(names []string) ([]File, error) {
	var out []File
	for _, name := range names {
		files, err := s.byArtist(name)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

func (s *Source) byArtist(name string) ([]File, error) {
	dir := filepath.Join(s.Root, FolderName(name))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading artist folder %s: %w", dir, err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, File{Artist: name, Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	if s.PerArtist > 0 && len(files) > s.PerArtist {
		files = files[:s.PerArtist]
	}
	return files, nil
}

// Artists lists the artist display names found under the dataset root,
// sorted. Folder names round-trip through FolderName.
func (s *Source) Artists() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("reading dataset root %s: %w", s.Root, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		names = append(names, strings.ReplaceAll(e.Name(), "_", " "))
	}
	sort.Strings(names)

	return names, nil
}

// Resolve maps a stored record back to its path on disk.
func (s *Source) Resolve(artist, filename string) (string, error) {
	path := filepath.Join(s.Root, FolderName(artist), filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("resolving %s: %w", filename, err)
	}
	return path, nil
}

// FolderName maps an artist's display name to their dataset folder name.
// Spaces become underscores; hyphens are kept. The Dürer folder is stored
// with a decomposed umlaut on disk, so it gets an exact mapping.
func FolderName(artist string) string {
	if strings.Contains(strings.ToLower(artist), "dürer") {
		return "Albrecht_Dürer"
	}
	return strings.ReplaceAll(artist, " ", "_")
}
