package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/envscout/envscout/internal/engine"
	"github.com/envscout/envscout/internal/envfile"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:   "envscout",
		Short: "Discover environment variable usage in a codebase",
		Long:  "A CLI tool that parses source trees and reports every environment variable they read, with inferred types and defaults.",
	}

	scanCmd = &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a directory and report discovered environment variables",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScan,
	}

	checkCmd = &cobra.Command{
		Use:   "check [path]",
		Short: "Compare discovered variables against env files",
		Long:  "Scan a directory and report variables used in code but missing from the given env files, plus env-file keys never read.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCheck,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}

	// Flags
	jsonOutput     bool
	extraExts      []string
	ignoreDirs     []string
	followSymlinks bool
	maxDepth       int
	maxFileSize    int64
	noFrameworks   bool
	useGitignore   bool
	verbose        bool
	envFiles       []string
)

func init() {
	scanCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	scanCmd.Flags().StringSliceVar(&extraExts, "ext", nil, "Additional file extensions to scan (with leading dot)")
	scanCmd.Flags().StringSliceVar(&ignoreDirs, "ignore-dir", nil, "Additional directory names to skip")
	scanCmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "Follow symbolic links while scanning")
	scanCmd.Flags().IntVar(&maxDepth, "max-depth", -1, "Maximum directory depth (negative for unlimited)")
	scanCmd.Flags().Int64Var(&maxFileSize, "max-file-size", engine.DefaultMaxFileSize, "Skip source files larger than this many bytes")
	scanCmd.Flags().BoolVar(&noFrameworks, "no-frameworks", false, "Disable framework detection and queries")
	scanCmd.Flags().BoolVar(&useGitignore, "gitignore", false, "Respect .gitignore rules at the scan root")
	scanCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable debug diagnostics")

	checkCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "Env file to compare against (repeatable, default .env at the scan root)")
	checkCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the comparison as JSON")
	checkCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable debug diagnostics")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

func scanRoot(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return "", fmt.Errorf("path does not exist: %s", absPath)
	}
	return absPath, nil
}

func newLogger() *log.Logger {
	logger := log.New(os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}

// buildOptions layers engine options: defaults, then the scan root's
// .envscout.yaml, then command-line flags.
func buildOptions(root string, logger *log.Logger) engine.Options {
	opts := engine.DefaultOptions()
	opts.Logger = logger

	v := viper.New()
	v.SetConfigName(".envscout")
	v.SetConfigType("yaml")
	v.AddConfigPath(root)
	if err := v.ReadInConfig(); err == nil {
		opts.Scan.IgnoreDirs = append(opts.Scan.IgnoreDirs, v.GetStringSlice("ignore_dirs")...)
		opts.Scan.Extensions = append(opts.Scan.Extensions, v.GetStringSlice("extensions")...)
		if v.IsSet("frameworks") && !v.GetBool("frameworks") {
			opts.DisableFrameworks = true
		}
		logger.Debug("loaded tool config", "file", v.ConfigFileUsed())
	}

	opts.Scan.Extensions = append(opts.Scan.Extensions, extraExts...)
	opts.Scan.IgnoreDirs = append(opts.Scan.IgnoreDirs, ignoreDirs...)
	opts.Scan.FollowSymlinks = followSymlinks
	opts.Scan.MaxDepth = maxDepth
	opts.Scan.UseGitignore = useGitignore
	opts.MaxFileSize = maxFileSize
	if noFrameworks {
		opts.DisableFrameworks = true
	}
	return opts
}

func runScan(cmd *cobra.Command, args []string) error {
	root, err := scanRoot(args)
	if err != nil {
		return err
	}

	logger := newLogger()
	result, frameworks, err := engine.New(buildOptions(root, logger)).Run(root)
	if err != nil {
		return err
	}

	if jsonOutput {
		return renderJSON(os.Stdout, result)
	}
	renderText(os.Stdout, root, result, frameworks)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	root, err := scanRoot(args)
	if err != nil {
		return err
	}

	logger := newLogger()
	result, _, err := engine.New(buildOptions(root, logger)).Run(root)
	if err != nil {
		return err
	}

	paths := envFiles
	if len(paths) == 0 {
		paths = []string{filepath.Join(root, ".env")}
	}
	keys, err := envfile.Load(paths...)
	if err != nil {
		return err
	}

	comparison := envfile.Compare(result, keys)
	if jsonOutput {
		if err := renderComparisonJSON(os.Stdout, comparison); err != nil {
			return err
		}
	} else {
		renderComparison(os.Stdout, comparison)
	}

	if len(comparison.Missing) > 0 {
		os.Exit(1)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
