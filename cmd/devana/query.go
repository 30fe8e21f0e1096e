package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/devana"
	"github.com/jward/devana/internal/model"
	"github.com/jward/devana/internal/runtime"
	"github.com/jward/devana/internal/store"
	"github.com/jward/devana/scripts"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [path]",
	Short: "Print the scope tree of a file or source tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "."
		if len(args) > 0 {
			target = args[0]
		}
		m, err := buildModel(cmd.Context(), target)
		if err != nil {
			return outputError("dump", err)
		}
		return outputResult(CLIResult{Command: "dump", Results: dumpModel(m)})
	},
}

var flagResolve bool

var lookupCmd = &cobra.Command{
	Use:   "lookup <qualified-name> [path]",
	Short: "Look up an entity by qualified name",
	Long:  "Looks up an entity in the model built from path, or in the exported database when --db is given.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runLookup,
}

func init() {
	lookupCmd.Flags().BoolVar(&flagResolve, "resolve", false, "follow typedefs, aliases and using-declarations")
}

func runLookup(cmd *cobra.Command, args []string) error {
	name := args[0]
	if flagDB != "" && len(args) == 1 {
		s, err := openStore()
		if err != nil {
			return outputError("lookup", err)
		}
		defer s.Close()
		rows, err := s.EntitiesByQualifiedName(name)
		if err != nil {
			return outputError("lookup", err)
		}
		if len(rows) == 0 {
			return outputError("lookup", fmt.Errorf("%w: %q", devana.ErrNotFound, name))
		}
		out := make([]CLIEntity, len(rows))
		for i, r := range rows {
			out[i] = storeEntityToCLI(r)
		}
		return outputResult(CLIResult{Command: "lookup", Results: out})
	}

	target := "."
	if len(args) > 1 {
		target = args[1]
	}
	m, err := buildModel(cmd.Context(), target)
	if err != nil {
		return outputError("lookup", err)
	}
	var e devana.Entity
	if flagResolve {
		e, err = m.Resolve(name)
	} else {
		e, err = m.Lookup(name)
	}
	if err != nil {
		return outputError("lookup", err)
	}
	return outputResult(CLIResult{Command: "lookup", Results: []CLIEntity{entityToCLI(&e, 0)}})
}

var flagScriptsDir string

var scriptCmd = &cobra.Command{
	Use:   "script <file.risor> [path]",
	Short: "Run a Risor script against the model",
	Long:  "Builds the model of path and runs the script with the model query functions. When --db names an existing database, db_query and the other db_* functions are available too.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runScript,
}

func init() {
	scriptCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "directory imports are resolved from (default: the script's directory)")
}

func runScript(cmd *cobra.Command, args []string) error {
	scriptPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving script path %q: %w", args[0], err)
	}
	target := "."
	if len(args) > 1 {
		target = args[1]
	}
	m, err := buildModel(cmd.Context(), target)
	if err != nil {
		return err
	}

	scriptsDir := flagScriptsDir
	if scriptsDir == "" {
		scriptsDir = filepath.Dir(scriptPath)
	}
	opts := []runtime.RuntimeOption{runtime.WithModel(m), runtime.WithLogger(logger)}
	if flagDB != "" {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		opts = append(opts, runtime.WithStore(s))
	}
	rt := runtime.NewRuntime(scriptsDir, opts...)
	return rt.RunScript(cmd.Context(), scriptPath, nil)
}

var checkCmd = &cobra.Command{
	Use:   "check <name> [path]",
	Short: "Run a built-in check against the model",
	Long:  "Runs one of the checks embedded in devana: bitfields, documented, ignored_fields or unresolved.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := scripts.CheckPath(args[0])
		if _, err := fs.Stat(scripts.FS, path); err != nil {
			return fmt.Errorf("unknown check %q", args[0])
		}
		target := "."
		if len(args) > 1 {
			target = args[1]
		}
		m, err := buildModel(cmd.Context(), target)
		if err != nil {
			return err
		}
		rt := runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS), runtime.WithModel(m), runtime.WithLogger(logger))
		return rt.RunScript(cmd.Context(), path, nil)
	},
}

// openStore opens the database named by --db.
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("database not found: %s (run 'devana index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// dumpModel flattens the scope tree in document order.
func dumpModel(m *devana.Model) CLIDump {
	depth := map[devana.ID]int{devana.RootID: -1}
	var entities []CLIEntity
	m.Walk(func(e devana.Entity) bool {
		d := depth[e.Owner] + 1
		depth[e.ID] = d
		entities = append(entities, entityToCLI(&e, d))
		return true
	})
	return CLIDump{
		Files:       m.Files(),
		Fingerprint: m.Fingerprint(),
		Entities:    entities,
		Diagnostics: diagnosticsToCLI(m.Diagnostics()),
	}
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// entityToCLI converts a model entity to a CLIEntity.
func entityToCLI(e *devana.Entity, depth int) CLIEntity {
	out := CLIEntity{
		ID:            int64(e.ID),
		Kind:          e.Kind.String(),
		Name:          e.Name,
		QualifiedName: e.QualifiedName(),
		Owner:         int64(e.Owner),
		File:          e.Span.File,
		StartLine:     e.Span.StartLine,
		StartCol:      e.Span.StartCol,
		Detail:        model.DescribeDetail(e),
		Doc:           e.Doc,
		Depth:         depth,
	}
	for _, a := range e.Attributes {
		out.Attributes = append(out.Attributes, a.Key())
	}
	if len(e.Directives) > 0 {
		out.Directives = make(map[string]string, len(e.Directives))
		for _, d := range e.Directives {
			out.Directives[d.Name] = d.Value
		}
	}
	return out
}

// storeEntityToCLI converts an exported entity row to a CLIEntity.
func storeEntityToCLI(e *store.Entity) CLIEntity {
	out := CLIEntity{
		ID:            e.ID,
		Kind:          e.Kind,
		Name:          e.Name,
		QualifiedName: e.QualifiedName,
		File:          e.File,
		StartLine:     e.StartLine,
		StartCol:      e.StartCol,
		Detail:        e.Detail,
		Doc:           e.Doc,
	}
	if e.OwnerID != nil {
		out.Owner = *e.OwnerID
	}
	return out
}

func diagnosticsToCLI(ds []devana.Diagnostic) []CLIDiagnostic {
	out := make([]CLIDiagnostic, len(ds))
	for i, d := range ds {
		out[i] = CLIDiagnostic{
			Code:     d.Code.String(),
			Message:  d.Message,
			EntityID: int64(d.Entity),
			File:     d.Span.File,
			Line:     d.Span.StartLine,
			Col:      d.Span.StartCol,
		}
	}
	return out
}
