package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/ulordchain/ucwallet/internal/config"
	"github.com/ulordchain/ucwallet/internal/logging"
	"github.com/ulordchain/ucwallet/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/ulordchain/ucwallet/cmd.Version=1.2.3" .
var Version = "1.0.0"

var (
	cfgDir       string
	envFile      string
	providerFlag string
	keystoreFlag string
	keystorePwd  string
	remember     bool
	logFileFlag  string
	verbose      bool

	cfg    *config.Config
	logger *logging.Logger
)

// rootCmd starts the interactive wallet shell.
var rootCmd = &cobra.Command{
	Use:   "ucwallet",
	Short: "Ulord side-chain wallet and contract shell",
	Long: `ucwallet: wallet and contract shell for the Ulord side chain.

  Without a subcommand the account from --keystorefile (or keystore_file in
  config.json) is unlocked and an interactive shell is started. Type "help"
  inside the shell for the list of commands.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir, envFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		applyFlagOverrides(cfg)

		opts := logging.Options{File: cfg.LogFile, Level: cfg.LogLevel}
		if verbose {
			opts.Level = "debug"
		}
		if verbose || cmd.Name() == "deploy" || cmd.Name() == "activate" {
			opts.Console = os.Stderr
		}
		logger, err = logging.New(opts)
		if err != nil {
			return fmt.Errorf("opening log: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			return logger.Close()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.loginConfigured(cmd.Context()); err != nil {
			fmt.Fprintln(os.Stderr, ui.Warn(err.Error()))
			fmt.Fprintln(os.Stderr, ui.Hint("log in from the shell with login_by_key_file or login_by_private_key"))
		}
		return a.runShell(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(1)
	}
}

func init() {
	// UCWALLET_HOME overrides the --config default.
	if envDir := os.Getenv("UCWALLET_HOME"); envDir != "" {
		cfgDir = envDir
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgDir, "config", cfgDir, "data directory (default: ~/.ucwallet)")
	pf.StringVar(&envFile, "env", "", "load environment variables from this .env file")
	pf.StringVar(&providerFlag, "provider", "", "JSON-RPC endpoint of the side chain")
	pf.StringVar(&keystoreFlag, "keystorefile", "", "wallet key file to unlock")
	pf.StringVar(&keystorePwd, "keystore_pwd", "", "password of the key file (prompted when empty)")
	pf.BoolVar(&remember, "remember", false, "remember the key file password in the OS keychain")
	pf.StringVar(&logFileFlag, "logfile", "", "audit log file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "also log to stderr, at debug level")

	rootCmd.AddCommand(
		deployCmd,
		activateCmd,
		execCmd,
		walletCmd,
	)
}

func applyFlagOverrides(c *config.Config) {
	if providerFlag != "" {
		c.Provider = providerFlag
	}
	if keystoreFlag != "" {
		c.KeystoreFile = keystoreFlag
	}
	if logFileFlag != "" {
		c.LogFile = logFileFlag
	}
}

// interruptible returns a context cancelled by Ctrl-C.
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
