package validate

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles carries the lipgloss styles for the terminal report. A zero style
// renders plain text, which is what the no-color path uses.
type styles struct {
	ok     lipgloss.Style
	errLbl lipgloss.Style
	season lipgloss.Style
	rec    lipgloss.Style
	path   lipgloss.Style
}

func newStyles(colored bool) styles {
	if !colored {
		return styles{}
	}
	return styles{
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		errLbl: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		season: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		rec:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		path:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// Render writes the report as an indented OK/ERROR tree. colored enables
// ANSI styling; pass false when stdout is not a terminal.
func (r *Report) Render(w io.Writer, colored bool) {
	st := newStyles(colored)

	for _, season := range r.Seasons {
		fmt.Fprintf(w, "Checking season %s:\n", st.season.Render(season.Title))

		for _, c := range season.Checks {
			if !c.OK {
				fmt.Fprintf(w, "  %s: %s\n", st.errLbl.Render("ERROR"), c.Detail)
			}
		}

		for _, rec := range season.Recordings {
			fmt.Fprintf(w, "\n  Recording %s:\n", st.rec.Render(rec.Title))
			for _, c := range rec.Checks {
				if c.OK {
					fmt.Fprintf(w, "    %s %s\n", st.ok.Render("OK"), c.Name)
					continue
				}
				if c.Path != "" {
					fmt.Fprintf(w, "    %s %s: %s (%s)\n",
						st.errLbl.Render("ERROR"), c.Name, c.Detail, st.path.Render(c.Path))
				} else {
					fmt.Fprintf(w, "    %s %s: %s\n", st.errLbl.Render("ERROR"), c.Name, c.Detail)
				}
			}
		}
		fmt.Fprintln(w)
	}

	if r.Errors == 0 {
		fmt.Fprintln(w, "No errors found")
	} else {
		fmt.Fprintf(w, "Found %d errors, review the output above\n", r.Errors)
	}
}
