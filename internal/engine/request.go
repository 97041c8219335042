package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/unknproject/loader/internal/domain"
	"github.com/unknproject/loader/internal/inject"
)

// Request is a single injection request. Exactly one of Payload or File is
// set: catalog payloads are downloaded first, local files are used in place.
type Request struct {
	Payload *domain.Payload
	File    string
	Process string
}

// CatalogRequest asks for a catalog payload to be loaded into its own target.
func CatalogRequest(p domain.Payload) Request {
	return Request{Payload: &p}
}

// FileRequest asks for a local library to be loaded into process.
func FileRequest(path, process string) Request {
	return Request{File: path, Process: process}
}

// job is a validated Request with everything the worker needs resolved.
type job struct {
	name      string
	process   string
	library   string
	strategy  domain.Strategy
	remote    string
	custom    bool
	formatter inject.Formatter
}

func (o *Orchestrator) plan(req Request) (job, error) {
	switch {
	case req.Payload != nil && req.File != "":
		return job{}, fmt.Errorf("request names both a payload and a file")
	case req.Payload != nil:
		p := *req.Payload
		if p.RemoteFile == "" || p.TargetProcess == "" {
			return job{}, fmt.Errorf("payload %q has no file or target process", p.Name)
		}
		if inject.RequiresX64(p) && o.hostBits == 32 {
			return job{}, domain.ErrUnsupportedHost
		}
		return job{
			name:      p.Name,
			process:   p.TargetProcess,
			library:   p.LocalPath(),
			strategy:  inject.Select(p),
			remote:    p.RemoteFile,
			formatter: inject.CollapseNewlines,
		}, nil
	case req.File != "":
		if !domain.IsLibrary(req.File) {
			return job{}, domain.ErrNotLibrary{Path: req.File}
		}
		if strings.TrimSpace(req.Process) == "" {
			return job{}, fmt.Errorf("no target process given for %s", req.File)
		}
		abs, err := filepath.Abs(req.File)
		if err != nil {
			return job{}, fmt.Errorf("resolve %s: %w", req.File, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return job{}, fmt.Errorf("open library: %w", err)
		}
		return job{
			name:      filepath.Base(abs),
			process:   req.Process,
			library:   abs,
			strategy:  inject.SelectForProcess(req.Process),
			custom:    true,
			formatter: inject.WrapSeven,
		}, nil
	default:
		return job{}, fmt.Errorf("request names neither a payload nor a file")
	}
}

// helperArgs is the argument list for the manual-map helper. Catalog
// payloads pass only the library; user files name the target explicitly.
func (j job) helperArgs() []string {
	if j.custom {
		return []string{j.process, j.library}
	}
	return []string{j.library}
}
