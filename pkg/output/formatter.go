package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintReport writes the human-readable target report. Colors are only
// emitted when colorize is set, so the same output can go to a file.
func PrintReport(w io.Writer, s *Summary, colorize bool) error {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	for _, c := range []*color.Color{bold, red, green, yellow, cyan} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	// Header
	bold.Fprintln(w, "depscope - Build Dependency Report")
	bold.Fprintln(w, "==================================")
	fmt.Fprintf(w, "Project:    %s\n", s.Project)
	fmt.Fprintf(w, "Build dir:  %s\n", s.BuildDirectory)
	if s.Generator != "" {
		fmt.Fprintf(w, "Generator:  %s\n", s.Generator)
	} else {
		yellow.Fprintf(w, "Generator:  unknown\n")
	}
	if s.Configuration != "" {
		fmt.Fprintf(w, "Config:     %s\n", s.Configuration)
	}
	if s.FileAPIPresent {
		green.Fprintln(w, "File API:   yes")
	} else {
		red.Fprintln(w, "File API:   no")
	}
	fmt.Fprintln(w)

	if len(s.Targets) == 0 {
		yellow.Fprintln(w, "No targets found.")
	} else {
		var buf strings.Builder
		table := tablewriter.NewTable(&buf,
			tablewriter.WithRowAutoWrap(tw.WrapNone),
			tablewriter.WithHeaderAutoFormat(tw.Off),
			tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
				Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.Off, ShowHeader: tw.On}},
			})))
		table.Header("Target", "Type", "Kind", "Deps", "Artifacts")

		rows := make([][]string, 0, len(s.Targets))
		for _, row := range s.Targets {
			classification := cyan.Sprint(row.Classification)
			artifacts := strings.Join(row.Artifacts, ", ")
			if artifacts == "" {
				artifacts = "-"
			}
			rows = append(rows, []string{row.Name, classification, row.Kind, fmt.Sprint(row.Dependencies), artifacts})
		}
		if err := table.Bulk(rows); err != nil {
			return fmt.Errorf("failed to render targets: %w", err)
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render targets: %w", err)
		}
		if _, err := io.WriteString(w, buf.String()); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	if len(s.Cycles) > 0 {
		red.Fprintf(w, "DEPENDENCY CYCLES (%d):\n", len(s.Cycles))
		for _, cycle := range s.Cycles {
			names := append(append([]string{}, cycle.Names...), cycle.Names[0])
			yellow.Fprintf(w, "  %s\n", strings.Join(names, " -> "))
		}
		fmt.Fprintln(w)
	}

	if s.Dangling > 0 {
		yellow.Fprintf(w, "Unresolved dependency references: %d\n", s.Dangling)
	}

	applications, libraries := s.Counts()
	summary := green
	if len(s.Cycles) > 0 {
		summary = yellow
	}
	_, err := summary.Fprintf(w, "Summary: %d targets (%d applications, %d libraries), %d cycles\n",
		len(s.Targets), applications, libraries, len(s.Cycles))
	return err
}
