package testutils

import "path"

// MockResolver maps records to references without touching the filesystem.
type MockResolver struct {
	// Prefix is prepended to every resolved reference.
	Prefix string
}

func (m *MockResolver) Resolve(artist, filename string) (string, error) {
	return path.Join(m.Prefix, artist, filename), nil
}
