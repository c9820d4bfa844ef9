// Package web embeds the page templates and static assets served by
// internal/web.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static templates
var content embed.FS

// StaticFS returns the static asset file system (stylesheets).
func StaticFS() fs.FS {
	return mustSub("static")
}

// TemplatesFS returns the page template file system.
func TemplatesFS() fs.FS {
	return mustSub("templates")
}

// mustSub panics if dir is not one of the embedded directories.
func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(content, dir)
	if err != nil {
		panic("web: embedded directory " + dir + ": " + err.Error())
	}
	return sub
}
