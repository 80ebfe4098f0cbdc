package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/simonhull/firebird-suite/flock/pkg/logger"
)

// DefaultManifestFiles are tried in order when no manifest is configured.
var DefaultManifestFiles = []string{"angular.json", "workspace.json"}

// Options configures Load.
type Options struct {
	ManifestFiles []string    // Candidate manifest names relative to root
	ConfigNames   ConfigNames // Zero value means DefaultConfigNames
	Strict        bool        // Overlapping source roots become a ManifestError
	Logger        logger.Logger
}

type manifestJSON struct {
	Projects json.RawMessage `json:"projects"`
}

type declarationJSON struct {
	Root        string `json:"root"`
	SourceRoot  string `json:"sourceRoot"`
	ProjectType string `json:"projectType"`
}

// Load reads the workspace manifest under root.
func Load(root string, opts Options) (*Workspace, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &ManifestError{Path: root, Err: err}
	}

	candidates := opts.ManifestFiles
	if len(candidates) == 0 {
		candidates = DefaultManifestFiles
	}

	manifestPath, data, err := readFirst(absRoot, candidates)
	if err != nil {
		return nil, err
	}

	projects, err := parseManifest(absRoot, data)
	if err != nil {
		return nil, &ManifestError{Path: manifestPath, Err: err}
	}

	ws := New(absRoot, projects)
	ws.manifestPath = manifestPath
	if opts.ConfigNames.Application != "" {
		ws.configNames.Application = opts.ConfigNames.Application
	}
	if opts.ConfigNames.Library != "" {
		ws.configNames.Library = opts.ConfigNames.Library
	}

	for _, o := range ws.Overlaps() {
		if opts.Strict {
			return nil, &ManifestError{
				Path: manifestPath,
				Err:  fmt.Errorf("source root of %q contains source root of %q", o.Outer, o.Inner),
			}
		}
		log.Warn("Overlapping source roots, longest prefix wins",
			logger.F("outer", o.Outer),
			logger.F("inner", o.Inner))
	}

	log.Debug("Loaded workspace manifest",
		logger.F("path", manifestPath),
		logger.F("projects", len(ws.projects)))

	return ws, nil
}

func readFirst(root string, candidates []string) (string, []byte, error) {
	for _, name := range candidates {
		p := filepath.Join(root, name)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, &ManifestError{Path: p, Err: err}
		}
	}
	return "", nil, &ManifestError{
		Path: root,
		Err:  fmt.Errorf("%w (tried %v)", ErrManifestNotFound, candidates),
	}
}

// parseManifest decodes the projects object keeping manifest key order, which
// is the enumeration order used everywhere downstream.
func parseManifest(root string, data []byte) ([]Project, error) {
	var m manifestJSON
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(m.Projects) == 0 || bytes.Equal(bytes.TrimSpace(m.Projects), []byte("null")) {
		return nil, errors.New(`missing "projects" object`)
	}

	dec := json.NewDecoder(bytes.NewReader(m.Projects))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing projects: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New(`"projects" must be an object`)
	}

	var projects []Project
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing projects: %w", err)
		}
		name := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing project %q: %w", name, err)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate project %q", name)
		}
		seen[name] = true

		decl, err := parseDeclaration(root, raw)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", name, err)
		}
		projects = append(projects, Project{Name: name, Declaration: decl})
	}

	return projects, nil
}

// parseDeclaration accepts either an inline declaration or, as Nx does, a
// string path to a directory holding project.json.
func parseDeclaration(root string, raw json.RawMessage) (Declaration, error) {
	var d declarationJSON

	var projectDir string
	if err := json.Unmarshal(raw, &projectDir); err == nil {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(projectDir), "project.json"))
		if err != nil {
			return Declaration{}, fmt.Errorf("reading project.json: %w", err)
		}
		if err := json.Unmarshal(data, &d); err != nil {
			return Declaration{}, fmt.Errorf("parsing project.json: %w", err)
		}
		if d.Root == "" {
			d.Root = projectDir
		}
	} else if err := json.Unmarshal(raw, &d); err != nil {
		return Declaration{}, fmt.Errorf("parsing declaration: %w", err)
	}

	kind := Kind(d.ProjectType)
	if kind != KindApplication && kind != KindLibrary {
		return Declaration{}, fmt.Errorf("unknown projectType %q", d.ProjectType)
	}

	sourceRoot := d.SourceRoot
	if sourceRoot == "" {
		// Angular CLI default
		sourceRoot = path.Join(normalizeDir(d.Root), "src")
	}

	return Declaration{
		Root:       d.Root,
		SourceRoot: sourceRoot,
		Kind:       kind,
	}, nil
}
