package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"toprepos/internal/config"
	"toprepos/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

// cfg receives flag values. Only flags the user actually set are copied onto
// the loaded configuration (see resolveConfig).
var (
	cfg        = config.New()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "toprepos",
	Short: "List the most-starred GitHub repositories and their contributors",
	Long: `toprepos lists the 100 most-starred GitHub repositories and lazily loads
the contributors of each one.

Examples:
	# Show available commands and global flags
	toprepos --help

	# Print the top repositories with contributors for the first 10
	toprepos list

	# Serve the repository list over HTTP with server-sent events
	toprepos serve --addr :8080

	# Print build info
	toprepos version

Output:
	By default, commands write human-readable output to stdout and logs to stderr.
	Some commands support structured output via emitter flags (see each command's --help).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every GitHub API call, intent and state change)")
	rootCmd.PersistentFlags().StringVar(&configPath, flags.FlagConfig, "", "Read settings from this YAML file")
	rootCmd.PersistentFlags().StringVar(&cfg.GitHub.Token, flags.FlagToken, "", "GitHub access token (optional; raises the API rate limit)")
	rootCmd.PersistentFlags().Bool(flags.FlagNoGhCLI, false, "Do not fall back to 'gh auth token' when no token is set")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// resolveConfig loads defaults, the --config file and the environment, then
// overlays every flag set on cmd. The result is validated.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	loaded, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	overlayFlags(cmd, cfg, loaded)
	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	return loaded, nil
}

// flagFields maps each value flag to the config field it sets.
var flagFields = map[string]func(dst, src *config.Config){
	flags.FlagVerbose: func(dst, src *config.Config) { dst.Runtime.Verbose = src.Runtime.Verbose },
	flags.FlagToken:   func(dst, src *config.Config) { dst.GitHub.Token = src.GitHub.Token },

	flags.FlagConsoleFormat: func(dst, src *config.Config) { dst.Output.ConsoleFormat = src.Output.ConsoleFormat },
	flags.FlagWidth:         func(dst, src *config.Config) { dst.Output.ContributorWidth = src.Output.ContributorWidth },
	flags.FlagReport:        func(dst, src *config.Config) { dst.Output.Report = src.Output.Report },
	flags.FlagOut:           func(dst, src *config.Config) { dst.Output.Out = src.Output.Out },
	flags.FlagOutFormat:     func(dst, src *config.Config) { dst.Output.OutFormat = src.Output.OutFormat },
	flags.FlagEmit:          func(dst, src *config.Config) { dst.Output.Emit = src.Output.Emit },
	flags.FlagNoConsole:     func(dst, src *config.Config) { dst.Output.NoConsole = src.Output.NoConsole },

	flags.FlagContributors:    func(dst, src *config.Config) { dst.Runtime.Contributors = src.Runtime.Contributors },
	flags.FlagTimeout:         func(dst, src *config.Config) { dst.Runtime.Timeout = src.Runtime.Timeout },
	flags.FlagContributorWait: func(dst, src *config.Config) { dst.Runtime.ContributorWait = src.Runtime.ContributorWait },

	flags.FlagAddr:           func(dst, src *config.Config) { dst.Server.Addr = src.Server.Addr },
	flags.FlagAllowedOrigins: func(dst, src *config.Config) { dst.Server.AllowedOrigins = src.Server.AllowedOrigins },
}

func overlayFlags(cmd *cobra.Command, src, dst *config.Config) {
	fs := cmd.Flags()
	for name, apply := range flagFields {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			apply(dst, src)
		}
	}
	if fs.Changed(flags.FlagNoGhCLI) {
		if off, err := fs.GetBool(flags.FlagNoGhCLI); err == nil && off {
			dst.GitHub.UseGitHubCLI = false
		}
	}
}
