// Package treesitter wraps the native tree-sitter runtime behind a
// language-tagged parser pool. Parsers are not thread-safe; workers
// check one out per parse and return it.
package treesitter

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".py":   "python",
	".pyi":  "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".go":   "go",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".cxx":  "cpp",
	".hpp":  "cpp",
	".hh":   "cpp",
	".rb":   "ruby",
	".php":  "php",
	".rs":   "rust",
}

// binaryExts is the extension heuristic for files that are never source.
var binaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".bz2": true,
	".xz": true, ".7z": true, ".exe": true, ".dll": true, ".so": true,
	".dylib": true, ".a": true, ".o": true, ".bin": true, ".dat": true,
	".db": true, ".sqlite": true, ".woff": true, ".woff2": true,
	".ttf": true, ".eot": true, ".mp3": true, ".mp4": true, ".avi": true,
	".mov": true, ".wasm": true, ".class": true, ".jar": true,
	".pyc": true, ".pyo": true,
}

var (
	grammars     map[string]*sitter.Language
	grammarsOnce sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		grammars = map[string]*sitter.Language{
			"python":     python.GetLanguage(),
			"javascript": javascript.GetLanguage(),
			"typescript": ts.GetLanguage(),
			"go":         golang.GetLanguage(),
			"java":       java.GetLanguage(),
			"c":          c.GetLanguage(),
			"cpp":        cpp.GetLanguage(),
			"ruby":       ruby.GetLanguage(),
			"php":        php.GetLanguage(),
			"rust":       rust.GetLanguage(),
		}
	})
}

// LanguageForFile returns the canonical language name for a file path
// based on its extension. Returns ("", false) for unknown extensions.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// IsBinaryPath reports whether a path looks binary by extension.
func IsBinaryPath(path string) bool {
	return binaryExts[strings.ToLower(filepath.Ext(path))]
}

// Grammar returns the tree-sitter grammar for a canonical language name.
func Grammar(lang string) (*sitter.Language, bool) {
	initGrammars()
	g, ok := grammars[lang]
	return g, ok
}

// Supported returns the canonical names of all bundled grammars.
func Supported() []string {
	initGrammars()
	names := make([]string, 0, len(grammars))
	for name := range grammars {
		names = append(names, name)
	}
	return names
}
