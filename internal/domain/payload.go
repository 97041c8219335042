package domain

import (
	"path/filepath"
	"strings"
)

// CatalogEntry is one element of the JSON array served by the catalog endpoint.
type CatalogEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Status      string `json:"status"`
	File        string `json:"file"`
	Process     string `json:"process"`
	Source      string `json:"source"`
	Game        string `json:"game"`
}

// Payload describes an injectable library from the catalog.
// It is a plain value: copies never share state.
type Payload struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Author        string `json:"author"`
	Status        string `json:"status"`
	RemoteFile    string `json:"file"`
	TargetProcess string `json:"process"`
	SourceURL     string `json:"source"`
	Game          string `json:"game"`

	cacheRoot string
}

// NewPayload builds a Payload whose local copy lives under cacheRoot.
func NewPayload(cacheRoot string, e CatalogEntry) Payload {
	return Payload{
		Name:          e.Name,
		Description:   e.Description,
		Author:        e.Author,
		Status:        e.Status,
		RemoteFile:    e.File,
		TargetProcess: e.Process,
		SourceURL:     e.Source,
		Game:          e.Game,
		cacheRoot:     cacheRoot,
	}
}

// LocalPath is the cache location of the payload: the cache root joined with
// the remote file name.
func (p Payload) LocalPath() string {
	return filepath.Join(p.cacheRoot, filepath.Base(p.RemoteFile))
}

// IsLibrary reports whether path names a loadable library file.
func IsLibrary(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".dll")
}
