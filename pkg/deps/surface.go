package deps

import (
	"fmt"

	"github.com/simonhull/firebird-suite/flock/pkg/analysis"
	"github.com/simonhull/firebird-suite/flock/pkg/logger"
	"github.com/simonhull/firebird-suite/flock/pkg/workspace"
)

// DefaultBarrel is the public entry file of a library, relative to its
// source root.
const DefaultBarrel = "index.ts"

// ExportedSymbol is one name on a library's public surface.
type ExportedSymbol struct {
	Project      string
	Name         string
	Declarations []analysis.Declaration
}

// EnumerateSurface lists the exports of every library barrel that the engine
// has loaded, in library then export order. Libraries without a loaded
// barrel are skipped.
func EnumerateSurface(ws *workspace.Workspace, engine analysis.Engine, barrel string, log logger.Logger) ([]ExportedSymbol, error) {
	if barrel == "" {
		barrel = DefaultBarrel
	}

	var symbols []ExportedSymbol
	for _, lib := range ws.ListLibraries() {
		path := ws.BarrelPath(lib, barrel)
		if !engine.HasSourceFile(path) {
			log.Debug("No barrel file, skipping library",
				logger.F("project", lib.Name),
				logger.F("barrel", path))
			continue
		}

		exports, err := engine.ExportedSymbols(path)
		if err != nil {
			return nil, fmt.Errorf("listing exports of %s: %w", lib.Name, err)
		}

		for _, sym := range exports {
			symbols = append(symbols, ExportedSymbol{
				Project:      lib.Name,
				Name:         sym.Name,
				Declarations: sym.Declarations,
			})
		}
		log.Debug("Enumerated public surface",
			logger.F("project", lib.Name),
			logger.F("exports", len(exports)))
	}

	return symbols, nil
}
