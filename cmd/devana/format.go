package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/jward/devana"
	"github.com/jward/devana/internal/model"
)

var (
	positionColor = color.New(color.Bold)
	errorColor    = color.New(color.FgRed, color.Bold)
	warningColor  = color.New(color.FgYellow, color.Bold)
	noteColor     = color.New(color.FgCyan)
)

// codeColor picks the color a diagnostic code is rendered in. References
// that cannot be followed are errors for a generator; the rest are
// warnings or notes.
func codeColor(c devana.Code) *color.Color {
	switch c {
	case model.UnresolvedReference, model.MalformedDirective:
		return errorColor
	case model.AmbiguousReference, model.AmbiguousSpecialization, model.DuplicateDefinition:
		return warningColor
	default:
		return noteColor
	}
}

// formatDiagnosticsText writes one "file:line:col: Code: message" line per
// diagnostic. Color is dropped when w is not a terminal.
func formatDiagnosticsText(w io.Writer, ds []devana.Diagnostic) {
	for _, d := range ds {
		pos := "<unknown>"
		if d.Span.File != "" {
			pos = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
		}
		fmt.Fprintf(w, "%s: %s: %s\n",
			positionColor.Sprint(pos),
			codeColor(d.Code).Sprint(d.Code.String()),
			d.Message)
	}
}

// formatCLIDiagnosticsText is formatDiagnosticsText for exported rows.
func formatCLIDiagnosticsText(w io.Writer, ds []CLIDiagnostic) {
	for _, d := range ds {
		pos := "<unknown>"
		if d.File != "" {
			pos = fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Col)
		}
		fmt.Fprintf(w, "%s: %s: %s\n", positionColor.Sprint(pos), d.Code, d.Message)
	}
}

// formatEntitiesText formats CLIEntity results as aligned columns.
func formatEntitiesText(w io.Writer, es []CLIEntity) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tNAME\tFILE\tLINE\tDETAIL")
	for _, e := range es {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			e.ID, e.Kind, e.QualifiedName, e.File, e.StartLine, e.Detail)
	}
	tw.Flush()
	for _, e := range es {
		if e.Doc != "" {
			fmt.Fprintf(w, "\n%s:\n", e.QualifiedName)
			for _, line := range strings.Split(e.Doc, "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
}

// formatDumpText prints the scope tree indented by depth.
func formatDumpText(w io.Writer, d CLIDump) {
	fmt.Fprintf(w, "Files: %s\n", strings.Join(d.Files, ", "))
	fmt.Fprintf(w, "Fingerprint: %s\n\n", d.Fingerprint)
	for _, e := range d.Entities {
		name := e.Name
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(w, "%s%s %s", strings.Repeat("  ", e.Depth), e.Kind, name)
		if e.Detail != "" {
			fmt.Fprintf(w, " [%s]", e.Detail)
		}
		if len(e.Attributes) > 0 {
			fmt.Fprintf(w, " %s", noteColor.Sprintf("[[%s]]", strings.Join(e.Attributes, ", ")))
		}
		if len(e.Directives) > 0 {
			names := make([]string, 0, len(e.Directives))
			for k, v := range e.Directives {
				if v != "" {
					k += "=" + v
				}
				names = append(names, k)
			}
			sort.Strings(names)
			fmt.Fprintf(w, " %s", warningColor.Sprintf("{%s}", strings.Join(names, ", ")))
		}
		fmt.Fprintln(w)
	}
	if len(d.Diagnostics) > 0 {
		fmt.Fprintln(w)
		formatCLIDiagnosticsText(w, d.Diagnostics)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLIEntity:
		formatEntitiesText(w, v)
	case CLIDump:
		formatDumpText(w, v)
	case []CLIDiagnostic:
		formatCLIDiagnosticsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}
