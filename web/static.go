package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed public
var publicFS embed.FS

// Static serves the stylesheet and other assets. A non-empty dir replaces the
// embedded copy, which is handy while editing assets locally.
func Static(dir string) http.Handler {
	if dir != "" {
		return http.FileServer(http.Dir(dir))
	}
	sub, err := fs.Sub(publicFS, "public")
	if err != nil {
		// the embed directive guarantees the directory exists
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
