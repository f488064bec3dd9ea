package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"toprepos/internal/config"
	"toprepos/internal/flags"
	"toprepos/internal/gateway"
	gh "toprepos/internal/github"
)

const listHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	toprepos works without credentials. A GitHub access token raises the
	anonymous rate limit (60 requests per hour) and is looked up in order:
	1) --token
	2) GITHUB_TOKEN environment variable (a .env file in the working directory is read)
	3) GitHub CLI (gh) authentication via gh auth token, unless --no-gh-cli is set

	Other settings:
	  TOPREPOS_GITHUB_API_URL    REST API base URL (GitHub Enterprise)
	  TOPREPOS_CONSOLE_FORMAT    same as --console-format
	  TOPREPOS_CONTRIBUTORS      same as --contributors
	  TOPREPOS_WIDTH             same as --width
	  TOPREPOS_TIMEOUT           same as --timeout
	  TOPREPOS_CONTRIBUTOR_WAIT  same as --contributor-wait

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the most-starred GitHub repositories",
	Long: `Print the 100 most-starred GitHub repositories, with contributors for the
first repositories of the list.

The search runs once. Contributor lookups for the first --contributors
repositories run concurrently; the list is printed when all of them arrived
or --contributor-wait elapsed, whichever comes first. Rows still waiting
for contributors show "…".

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write the final listing as JSON or an NDJSON event stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --no-console: suppress the console sink (use with --emit/--out for machine output)
	- --report: write a Markdown report

	NDJSON mode emits one JSON object per line with a "type" field
	(run.started, state.changed, contributors.loaded, run.finished).

Exit codes:
	0 = repositories listed (possibly none)
	1 = the search failed
	3 = fatal error (bad configuration, client setup, or timeout)

Examples:
	toprepos list
	toprepos list --contributors 25 --width 80
	toprepos list --no-console --emit ndjson
	toprepos list --out top.json --report top.md
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(listMain(cmd))
	},
}

func listMain(cmd *cobra.Command) int {
	loaded, err := resolveConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}
	logger := newLogger(os.Stderr, loaded.Runtime.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := newGitHubGateway(ctx, loaded, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}

	return runList(ctx, loaded, listDeps{
		search:       client,
		contributors: client,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		logger:       logger,
	})
}

// newGitHubGateway resolves the optional token and builds the API gateway.
func newGitHubGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gateway.GitHub, error) {
	token, source, err := gh.ResolveAuthToken(ctx, cfg.GitHub.Token, cfg.GitHub.UseGitHubCLI)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve GitHub auth token: %w", err)
	}
	if source == gh.AuthTokenSourceNone {
		logger.Info("no GitHub token found; using anonymous rate limit")
	} else {
		logger.Debug("github token resolved", "source", string(source))
	}

	client, err := gh.NewClient(ctx, token,
		gh.WithLogger(logger),
		gh.WithBaseURL(cfg.GitHub.BaseURL),
		gh.WithTimeout(cfg.GitHub.RequestTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return gateway.NewGitHub(client, gateway.NewRequestBudget())
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.SetHelpTemplate(listHelpTemplate)

	// MAINTAINER NOTE: If you add/change/remove flags here, add the matching
	// entry to flagFields in root.go so the value overrides config and env.

	// Output
	listCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, cfg.Output.ConsoleFormat, "Console output format: text|json|ndjson")
	listCmd.Flags().IntVar(&cfg.Output.ContributorWidth, flags.FlagWidth, cfg.Output.ContributorWidth, "Maximum width of each contributor summary in characters (0 = unlimited)")
	listCmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	listCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	listCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	listCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	listCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report)")

	// Runtime
	listCmd.Flags().IntVar(&cfg.Runtime.Contributors, flags.FlagContributors, cfg.Runtime.Contributors, "Load contributors for this many repositories from the top (0-100)")
	listCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout")
	listCmd.Flags().DurationVar(&cfg.Runtime.ContributorWait, flags.FlagContributorWait, cfg.Runtime.ContributorWait, "How long to wait for contributor lookups once the list arrived")
}
