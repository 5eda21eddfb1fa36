// Package api provides the HTTP server that exposes projected points and
// pipeline status, and serves the static scatter-plot viewer.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// ViewerDir is an optional directory of static viewer assets served at /.
	ViewerDir string

	// ThumbsDir is an optional directory of thumbnails served at /thumbs.
	ThumbsDir string
}
