// Package static embeds the control page served at the web root.
package static

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed index.html assets/*
var content embed.FS

// Index is the control page template. It renders a PageData.
var Index = template.Must(template.ParseFS(content, "index.html"))

// PageData is the data rendered into the control page.
type PageData struct {
	Lock               string
	RecognitionEnabled bool
	GalleryCount       int
	GalleryCapacity    int
}

// Assets returns an http.FileSystem over the embedded assets directory.
func Assets() http.FileSystem {
	fsys, err := fs.Sub(content, "assets")
	if err != nil {
		panic(err)
	}
	return http.FS(fsys)
}
