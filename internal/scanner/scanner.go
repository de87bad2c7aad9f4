package scanner

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Language represents a programming language
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguagePython     Language = "python"
	LanguageRuby       Language = "ruby"
	LanguageJava       Language = "java"
	LanguageGo         Language = "go"
	LanguageRust       Language = "rust"
	LanguageUnknown    Language = "unknown"
)

// FileInfo contains information about a file to be scanned
type FileInfo struct {
	Path     string
	Language Language
}

// Options controls which files a scan returns.
type Options struct {
	Extensions     []string // Extension allow-list (with leading dot)
	IgnoreDirs     []string // Directory names skipped at any depth
	FollowSymlinks bool
	MaxDepth       int  // Depth from the root; negative means unlimited
	UseGitignore   bool // Apply .gitignore rules found at the scan root
}

// DefaultExtensions covers every language the matchers support.
var DefaultExtensions = []string{
	".js", ".jsx", ".mjs", ".cjs",
	".ts", ".tsx",
	".py",
	".rb",
	".java",
	".go",
	".rs",
}

// DefaultIgnoreDirs are directory names skipped at any depth.
var DefaultIgnoreDirs = []string{
	"node_modules", ".git", "dist", "build", "vendor", "target",
	"test", "tests", "__tests__", "spec",
	".next", ".cache", "bin", "out",
}

// DefaultOptions returns scan options with the default extension allow-list
// and ignore-list, symlinks disabled, and unlimited depth.
func DefaultOptions() Options {
	return Options{
		Extensions: DefaultExtensions,
		IgnoreDirs: DefaultIgnoreDirs,
		MaxDepth:   -1,
	}
}

// Scanner handles file discovery and filtering
type Scanner struct {
	opts       Options
	extensions map[string]bool
	ignoreDirs map[string]bool
	ignorer    *gitignore.GitIgnore
	root       string
}

// New creates a scanner for the given options. Empty extension and ignore
// lists fall back to the defaults.
func New(opts Options) *Scanner {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if len(opts.IgnoreDirs) == 0 {
		opts.IgnoreDirs = DefaultIgnoreDirs
	}

	s := &Scanner{
		opts:       opts,
		extensions: make(map[string]bool),
		ignoreDirs: make(map[string]bool),
	}
	for _, ext := range opts.Extensions {
		s.extensions[strings.ToLower(ext)] = true
	}
	for _, dir := range opts.IgnoreDirs {
		s.ignoreDirs[dir] = true
	}
	return s
}

// DetectLanguage determines the language from a file extension.
func DetectLanguage(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript
	case ".ts", ".tsx":
		return LanguageTypeScript
	case ".py":
		return LanguagePython
	case ".rb":
		return LanguageRuby
	case ".java":
		return LanguageJava
	case ".go":
		return LanguageGo
	case ".rs":
		return LanguageRust
	default:
		return LanguageUnknown
	}
}

// Scan walks the directory tree rooted at rootPath and returns every file
// whose name ends with an allowed extension. Unreadable directories are
// skipped silently; they never fail the scan.
func (s *Scanner) Scan(rootPath string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}
	s.root = absRoot

	if s.opts.UseGitignore {
		// A missing or unreadable .gitignore simply disables the rules.
		if ign, err := gitignore.CompileIgnoreFile(filepath.Join(absRoot, ".gitignore")); err == nil {
			s.ignorer = ign
		}
	}

	var files []FileInfo
	s.walk(absRoot, 0, &files)
	return files, nil
}

// walk recurses into dir. Files directly under the scan root are at depth 0;
// recursion stops once depth would exceed MaxDepth.
func (s *Scanner) walk(dir string, depth int, files *[]FileInfo) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Permission denied or vanished mid-scan.
		return
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		isDir := entry.IsDir()

		if entry.Type()&os.ModeSymlink != 0 {
			if !s.opts.FollowSymlinks {
				continue
			}
			// Resolve the target and treat the entry as its target kind.
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			isDir = info.IsDir()
		}

		if isDir {
			if s.ignoreDirs[entry.Name()] {
				continue
			}
			if s.ignored(path) {
				continue
			}
			if s.opts.MaxDepth >= 0 && depth+1 > s.opts.MaxDepth {
				continue
			}
			s.walk(path, depth+1, files)
			continue
		}

		if !s.extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		if s.ignored(path) {
			continue
		}

		*files = append(*files, FileInfo{
			Path:     path,
			Language: DetectLanguage(path),
		})
	}
}

func (s *Scanner) ignored(path string) bool {
	if s.ignorer == nil {
		return false
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return s.ignorer.MatchesPath(filepath.ToSlash(rel))
}
