package main

// CLIResult is the top-level JSON envelope for all commands that print
// results.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIEntity is a JSON-friendly entity representation.
type CLIEntity struct {
	ID            int64             `json:"id"`
	Kind          string            `json:"kind"`
	Name          string            `json:"name"`
	QualifiedName string            `json:"qualified_name"`
	Owner         int64             `json:"owner,omitempty"`
	File          string            `json:"file,omitempty"`
	StartLine     int               `json:"start_line"`
	StartCol      int               `json:"start_col"`
	Detail        string            `json:"detail,omitempty"`
	Doc           string            `json:"doc,omitempty"`
	Attributes    []string          `json:"attributes,omitempty"`
	Directives    map[string]string `json:"directives,omitempty"`
	// Depth is the nesting level below the global namespace in dump output.
	Depth int `json:"depth,omitempty"`
}

// CLIDiagnostic is a JSON-friendly diagnostic.
type CLIDiagnostic struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	EntityID int64  `json:"entity_id,omitempty"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
}

// CLIDump is the output of the dump command.
type CLIDump struct {
	Files       []string        `json:"files"`
	Fingerprint string          `json:"fingerprint"`
	Entities    []CLIEntity     `json:"entities"`
	Diagnostics []CLIDiagnostic `json:"diagnostics"`
}
