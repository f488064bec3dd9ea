// Package flags defines canonical CLI flag names shared across commands.
// Keeping these as constants avoids drift between Cobra flag wiring and the
// code that checks which flags were set explicitly.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().IntVar(&cfg.Runtime.Contributors, flags.FlagContributors, 10, "...")
//	if cmd.Flags().Changed(flags.FlagContributors) { ... }
package flags

const (
	// Global
	FlagVerbose = "verbose"
	FlagConfig  = "config"
	FlagToken   = "token"
	FlagNoGhCLI = "no-gh-cli"

	// Output
	FlagConsoleFormat = "console-format"
	FlagWidth         = "width"
	FlagReport        = "report"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"
	FlagEmit          = "emit"
	FlagNoConsole     = "no-console"

	// Runtime
	FlagContributors    = "contributors"
	FlagTimeout         = "timeout"
	FlagContributorWait = "contributor-wait"

	// Server
	FlagAddr           = "addr"
	FlagAllowedOrigins = "allowed-origins"
)
