package runtime

import (
	"path/filepath"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
)

// grammar is a tree-sitter language scripts may parse with.
type grammar struct {
	name string
	lang func() *sitter.Language
	exts []string
}

// Headers are read as C++ since a ".h" file may be either language.
var grammars = []grammar{
	{name: "cpp", lang: cpp.GetLanguage, exts: []string{".h", ".hh", ".hpp", ".hxx", ".ipp", ".cc", ".cpp", ".cxx"}},
	{name: "c", lang: c.GetLanguage, exts: []string{".c"}},
}

// LanguageForFile names the grammar for path's extension.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, g := range grammars {
		if slices.Contains(g.exts, ext) {
			return g.name, true
		}
	}
	return "", false
}

// ParserForLanguage returns the tree-sitter language called name.
func ParserForLanguage(name string) (*sitter.Language, bool) {
	for _, g := range grammars {
		if g.name == name {
			return g.lang(), true
		}
	}
	return nil, false
}
