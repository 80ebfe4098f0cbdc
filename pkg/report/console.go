package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/simonhull/firebird-suite/flock/pkg/deps"
)

// WriteConsole prints one block per exporting project, in the order the
// projects first appear in usages, with one line per exported symbol:
//
//	lib-a:
//	   Foo (app-b, lib-c)
//	   Bar ()
//
// The heading is bold when w is a color terminal.
func WriteConsole(w io.Writer, usages []*deps.SymbolUsage) error {
	heading := lipgloss.NewRenderer(w).NewStyle().Bold(true)

	var order []string
	groups := make(map[string][]*deps.SymbolUsage)
	for _, u := range usages {
		project := u.Symbol.Project
		if _, ok := groups[project]; !ok {
			order = append(order, project)
		}
		groups[project] = append(groups[project], u)
	}

	for _, project := range order {
		if _, err := fmt.Fprintln(w, heading.Render(project+":")); err != nil {
			return err
		}
		for _, u := range groups[project] {
			line := fmt.Sprintf("   %s (%s)", u.Symbol.Name, strings.Join(u.Projects(), ", "))
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}
