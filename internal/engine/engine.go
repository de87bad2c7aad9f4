package engine

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/envscout/envscout/internal/discovery"
	"github.com/envscout/envscout/internal/framework"
	"github.com/envscout/envscout/internal/matcher"
	"github.com/envscout/envscout/internal/scanner"
)

// DefaultMaxFileSize caps how large a source file may be before it is
// skipped. Generated bundles and vendored blobs above this rarely contain
// hand-written configuration reads.
const DefaultMaxFileSize int64 = 10 << 20

// Options configures an Engine.
type Options struct {
	Scan              scanner.Options
	MaxFileSize       int64
	DisableFrameworks bool
	Logger            *log.Logger
}

// DefaultOptions returns engine options with default scan behavior and the
// default file-size cap.
func DefaultOptions() Options {
	return Options{
		Scan:        scanner.DefaultOptions(),
		MaxFileSize: DefaultMaxFileSize,
	}
}

// Engine coordinates the full discovery pipeline: framework detection, file
// scanning, per-language structural matching, framework query execution, and
// aggregation. Per-file and per-framework failures degrade to logged skips;
// only construction and scan failures surface as errors.
type Engine struct {
	opts     Options
	logger   *log.Logger
	scanner  *scanner.Scanner
	matchers map[scanner.Language]matcher.Matcher
}

// New builds an engine. A nil logger discards diagnostics.
func New(opts Options) *Engine {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{
		opts:     opts,
		logger:   logger,
		scanner:  scanner.New(opts.Scan),
		matchers: make(map[scanner.Language]matcher.Matcher),
	}
}

// Run discovers environment variable usage under root and returns the
// aggregated report along with the frameworks that contributed queries.
func (e *Engine) Run(root string) (*discovery.Result, []discovery.DetectedFramework, error) {
	frameworks, runners := e.loadFrameworks(root)

	files, err := e.scanner.Scan(root)
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", root, err)
	}

	var results []discovery.ParseResult
	filesScanned := 0
	for _, file := range files {
		source, ok := e.readSource(file.Path)
		if !ok {
			continue
		}
		filesScanned++

		m, err := e.matcherFor(file.Language)
		if err != nil {
			// A static query that does not compile means the tool itself is
			// broken; abort rather than silently produce a partial report.
			return nil, nil, err
		}
		if m == nil {
			continue
		}
		result, err := m.Discover(file.Path, source)
		if err != nil {
			// A file the grammar cannot produce a tree for contributes
			// nothing, not even framework matches.
			e.logger.Warn("parse failed, skipping file", "file", file.Path, "err", err)
			continue
		}

		for _, runner := range runners {
			if !languageApplies(runner.Language(), file.Language) {
				continue
			}
			fr, err := runner.Run(file.Path, source)
			if err != nil {
				e.logger.Debug("framework queries skipped", "framework", runner.Name(), "file", file.Path, "err", err)
				continue
			}
			result.Usages = append(result.Usages, fr.Usages...)
			result.Warnings = append(result.Warnings, fr.Warnings...)
		}

		results = append(results, *result)
	}

	return discovery.Aggregate(results, filesScanned), frameworks, nil
}

// loadDefinition is swapped out by tests to exercise framework load failures.
var loadDefinition = framework.LoadDefinition

// loadFrameworks detects frameworks at root and compiles their query sets. A
// framework whose definition fails to load or compile is skipped with a
// diagnostic; the rest of the run is unaffected.
func (e *Engine) loadFrameworks(root string) ([]discovery.DetectedFramework, []*framework.Runner) {
	if e.opts.DisableFrameworks {
		return nil, nil
	}

	detected := framework.Detect(root)
	var kept []discovery.DetectedFramework
	var runners []*framework.Runner
	for _, fw := range detected {
		cfg, err := loadDefinition(fw.ConfigPath)
		if err != nil {
			e.logger.Warn("skipping framework", "framework", fw.Name, "err", err)
			continue
		}
		runner, err := framework.NewRunner(cfg)
		if err != nil {
			e.logger.Warn("skipping framework", "framework", fw.Name, "err", err)
			continue
		}
		e.logger.Debug("framework detected", "framework", fw.Name, "confidence", fw.Confidence)
		kept = append(kept, fw)
		runners = append(runners, runner)
	}
	return kept, runners
}

func (e *Engine) readSource(path string) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil {
		e.logger.Warn("skipping unreadable file", "file", path, "err", err)
		return nil, false
	}
	if info.Size() > e.opts.MaxFileSize {
		e.logger.Debug("skipping oversized file", "file", path, "size", info.Size())
		return nil, false
	}
	source, err := os.ReadFile(path)
	if err != nil {
		e.logger.Warn("skipping unreadable file", "file", path, "err", err)
		return nil, false
	}
	return source, true
}

// matcherFor lazily constructs one matcher per language, at most once per
// run. A file classified under a language without a matcher maps to nil, a
// silent skip; a matcher whose base query fails to compile is a fatal setup
// error.
func (e *Engine) matcherFor(lang scanner.Language) (matcher.Matcher, error) {
	if m, ok := e.matchers[lang]; ok {
		return m, nil
	}
	m, err := matcher.New(lang)
	if err != nil {
		if lang == scanner.LanguageUnknown {
			e.matchers[lang] = nil
			return nil, nil
		}
		return nil, fmt.Errorf("construct %s matcher: %w", lang, err)
	}
	e.matchers[lang] = m
	return m, nil
}

// languageApplies reports whether a framework targeting frameworkLang should
// run against a file classified as fileLang. JavaScript and TypeScript are
// one family: each grammar is tolerant enough to parse the other's sources.
func languageApplies(frameworkLang string, fileLang scanner.Language) bool {
	if frameworkLang == string(fileLang) {
		return true
	}
	jsFamily := func(l string) bool { return l == "javascript" || l == "typescript" }
	return jsFamily(frameworkLang) && jsFamily(string(fileLang))
}
