package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"task-ledger/internal/api"
	"task-ledger/internal/config"
	"task-ledger/internal/domain"
)

// Runtime opens what the commands run against once flags are applied
type Runtime interface {
	// Bridge returns a wallet bridge signing as cfg.Ledger.Account
	Bridge(ctx context.Context, cfg *config.Config) (api.API, error)
	// Serve runs a node and its HTTP API until ctx is done
	Serve(ctx context.Context, cfg *config.Config) error
}

// RootCommand represents the base command when called without any subcommands
type RootCommand struct {
	cmd     *cobra.Command
	runtime Runtime
	config  *config.Config
}

// NewRootCommand creates the root cobra command with global flags
func NewRootCommand(runtime Runtime, cfg *config.Config) *RootCommand {
	root := &RootCommand{
		runtime: runtime,
		config:  cfg,
	}

	root.cmd = &cobra.Command{
		Use:   "tl",
		Short: "A to-do list kept on a shared ledger",
		Long: `Task Ledger (tl) keeps per-account to-do lists on an append-only ledger.

Every change is a signed transaction: it is queued, confirmed into a block,
and only then is the list read back. Deleting a task only flags it; the
record and its events stay on the ledger.

EXAMPLES:
  tl add "buy milk"                         # Add a task
  tl list                                   # List your tasks
  tl edit 0 "buy oat milk"                  # Change a task's text
  tl delete 0                               # Hide a task
  tl restore 0                              # Bring a deleted task back
  tl show 0                                 # Show one task, deleted or not
  tl events                                 # Show AddTask/DeleteTask events
  tl network                                # Show account and chain
  tl serve                                  # Run a node with an HTTP API

CONFIGURATION:
  Configuration follows this priority order: command-line flags > environment variables > .env > defaults

  Ledger Configuration:
    TL_ACCOUNT                             Wallet account, 0x followed by 40 hex digits
    TL_CHAIN_ID                            Network the wallet must be on (default: 0xaa36a7)
    TL_MAX_TEXT_LENGTH                     Maximum task text length, 0 for none (default: 0)

  Node Configuration:
    TL_NODE_URL                            Remote node API; empty runs a local node
    TL_NODE_CHAIN_ID                       Chain id a local node runs (default: 0xaa36a7)
    TL_NODE_POLL_INTERVAL                  Receipt polling interval (default: 500ms)
    TL_SERVER_ADDR                         Address tl serve listens on (default: 127.0.0.1:8545)

  Database Configuration:
    TL_DB_DIR                              Database directory (default: ~/.tl)
    TL_DB_FILENAME                         Database filename (default: tl.db)

  Logging Configuration:
    TL_LOG_LEVEL                           debug, info, warn or error (default: warn)
    TL_LOG_FILE                            Rotated JSON log file (default: none)

  Application Configuration:
    TL_APP_TIMEOUT                         Application timeout (default: 60s)
    TL_APP_VERBOSE                         Enable verbose output (default: false)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.getConfigFromFlags()
		},
	}

	root.addGlobalFlags()
	root.addSubcommands()

	return root
}

// Execute runs the root command
func (r *RootCommand) Execute() error {
	return r.cmd.Execute()
}

// ExecuteContext runs the root command with ctx as the parent of every command context
func (r *RootCommand) ExecuteContext(ctx context.Context) error {
	return r.cmd.ExecuteContext(ctx)
}

// Command exposes the cobra command, mainly for tests
func (r *RootCommand) Command() *cobra.Command {
	return r.cmd
}

// addGlobalFlags adds global configuration flags
func (r *RootCommand) addGlobalFlags() {
	flags := r.cmd.PersistentFlags()

	// Ledger configuration
	flags.StringP("account", "a", "", "Wallet account (overrides TL_ACCOUNT)")
	flags.String("chain-id", "", "Target chain id, decimal or 0x hex (overrides TL_CHAIN_ID)")
	flags.Int("max-text-length", 0, "Maximum task text length (overrides TL_MAX_TEXT_LENGTH)")

	// Node configuration
	flags.String("node-url", "", "Remote node API URL (overrides TL_NODE_URL)")
	flags.String("node-chain-id", "", "Chain id of a local node (overrides TL_NODE_CHAIN_ID)")
	flags.Duration("poll-interval", 0, "Receipt polling interval (overrides TL_NODE_POLL_INTERVAL)")

	// Database configuration
	flags.String("db-dir", "", "Database directory (overrides TL_DB_DIR)")
	flags.String("db-filename", "", "Database filename (overrides TL_DB_FILENAME)")
	flags.Duration("db-busy-timeout", 0, "SQLite busy timeout (overrides TL_DB_BUSY_TIMEOUT)")

	// Logging configuration
	flags.String("log-level", "", "Log level (overrides TL_LOG_LEVEL)")
	flags.String("log-file", "", "Log file (overrides TL_LOG_FILE)")

	// Application configuration
	flags.Duration("app-timeout", 0, "Application timeout (overrides TL_APP_TIMEOUT)")
	flags.BoolP("verbose", "v", false, "Enable verbose output (overrides TL_APP_VERBOSE)")
}

// addSubcommands adds all CLI subcommands to the root command
func (r *RootCommand) addSubcommands() {
	addCmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add a task",
		Long:  "Sign an addTask transaction, wait for it to be confirmed and print the refreshed list.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  r.runLedgerCommand("add"),
	}

	editCmd := &cobra.Command{
		Use:   "edit [id] [text]",
		Short: "Change the text of a task",
		Long:  "Sign an editTask transaction. Only the task's owner can edit it.",
		Args:  cobra.MinimumNArgs(2),
		RunE:  r.runLedgerCommand("edit"),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a task",
		Long: `Flag a task as deleted. The task disappears from "tl list" but stays on
the ledger and can be brought back with "tl restore".`,
		Args: cobra.ExactArgs(1),
		RunE: r.runLedgerCommand("delete"),
	}

	restoreCmd := &cobra.Command{
		Use:   "restore [id]",
		Short: "Restore a deleted task",
		Args:  cobra.ExactArgs(1),
		RunE:  r.runLedgerCommand("restore"),
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List your tasks",
		Long:  "List the tasks owned by the wallet account, in id order. Deleted tasks are left out.",
		Args:  cobra.NoArgs,
		RunE:  r.runLedgerCommand("list"),
	}

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE:  r.runLedgerCommand("show"),
	}

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Show events emitted for your tasks",
		Args:  cobra.NoArgs,
		RunE:  r.runLedgerCommand("events"),
	}

	networkCmd := &cobra.Command{
		Use:   "network",
		Short: "Show the wallet account and network",
		Args:  cobra.NoArgs,
		RunE:  r.runLedgerCommand("network"),
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a ledger node with an HTTP API",
		Long: `Run a ledger node on the local database and expose it over HTTP so other
clients can point TL_NODE_URL at it. Stops on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runtime.Serve(cmd.Context(), r.config)
		},
	}
	serveCmd.Flags().String("addr", "", "Listen address (overrides TL_SERVER_ADDR)")
	serveCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			r.config.Server.Addr = addr
		}
		return r.config.Validate()
	}

	r.cmd.AddCommand(
		addCmd,
		editCmd,
		deleteCmd,
		restoreCmd,
		listCmd,
		showCmd,
		eventsCmd,
		networkCmd,
		serveCmd,
	)
}

// runLedgerCommand opens a bridge and dispatches to the registered handler
func (r *RootCommand) runLedgerCommand(name string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), r.getAppTimeout())
		defer cancel()

		bridge, err := r.runtime.Bridge(ctx, r.config)
		if err != nil {
			return err
		}

		app := NewAppWithConfig(bridge, r.config)
		app.SetOutput(cmd.OutOrStdout())
		return app.Run(ctx, append([]string{name}, args...))
	}
}

// getAppTimeout returns the configured application timeout
func (r *RootCommand) getAppTimeout() time.Duration {
	if r.config != nil && r.config.Application.Timeout > 0 {
		return r.config.Application.Timeout
	}
	return 60 * time.Second
}

// getConfigFromFlags updates the configuration with values from command-line flags
func (r *RootCommand) getConfigFromFlags() error {
	if r.config == nil {
		return fmt.Errorf("configuration not initialized")
	}

	flags := r.cmd.PersistentFlags()
	overrides := &config.ConfigOverrides{}

	if flags.Changed("account") {
		account, _ := flags.GetString("account")
		overrides.Account = &account
	}
	if flags.Changed("chain-id") {
		raw, _ := flags.GetString("chain-id")
		chainID, err := domain.ParseChainID(raw)
		if err != nil {
			return err
		}
		overrides.ChainID = &chainID
	}
	if flags.Changed("max-text-length") {
		maxLength, _ := flags.GetInt("max-text-length")
		overrides.MaxTextLength = &maxLength
	}

	if flags.Changed("node-url") {
		nodeURL, _ := flags.GetString("node-url")
		overrides.NodeURL = &nodeURL
	}
	if flags.Changed("node-chain-id") {
		raw, _ := flags.GetString("node-chain-id")
		chainID, err := domain.ParseChainID(raw)
		if err != nil {
			return err
		}
		overrides.NodeChainID = &chainID
	}
	if flags.Changed("poll-interval") {
		interval, _ := flags.GetDuration("poll-interval")
		overrides.PollInterval = &interval
	}

	if flags.Changed("db-dir") {
		dbDir, _ := flags.GetString("db-dir")
		overrides.DBDir = &dbDir
	}
	if flags.Changed("db-filename") {
		dbFilename, _ := flags.GetString("db-filename")
		overrides.DBFilename = &dbFilename
	}
	if flags.Changed("db-busy-timeout") {
		busyTimeout, _ := flags.GetDuration("db-busy-timeout")
		overrides.BusyTimeout = &busyTimeout
	}

	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		overrides.LogLevel = &level
	}
	if flags.Changed("log-file") {
		file, _ := flags.GetString("log-file")
		overrides.LogFile = &file
	}

	if flags.Changed("app-timeout") {
		timeout, _ := flags.GetDuration("app-timeout")
		overrides.Timeout = &timeout
	}
	if flags.Changed("verbose") {
		verbose, _ := flags.GetBool("verbose")
		overrides.Verbose = &verbose
	}

	return r.config.ApplyOverrides(overrides)
}
