package main

import (
	"embed"
	"io/fs"

	"github.com/pkg/errors"
)

// The viewer page served at /.
//
//go:embed frontend/index.html frontend/app.js frontend/style.css
var webFiles embed.FS

// webRoot returns the viewer page files with the frontend/ prefix stripped.
func webRoot() (fs.FS, error) {
	root, err := fs.Sub(webFiles, "frontend")
	if err != nil {
		return nil, errors.Wrap(err, "embedded viewer")
	}
	return root, nil
}
