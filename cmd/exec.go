package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ulordchain/ucwallet/internal/dispatch"
	"github.com/ulordchain/ucwallet/internal/ui"
)

var execCmd = &cobra.Command{
	Use:   "exec <command> [args...]",
	Short: "Run one shell command without entering the shell",
	Long: `Run a single shell command, e.g.

  ucwallet exec get_balance 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266
  ucwallet exec Token balanceOf 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266

The configured key file is unlocked only when the command needs an account.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptible(cmd.Context())
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		res, err := a.disp.Execute(ctx, args)
		if errors.Is(err, dispatch.ErrNoAccount) && a.cfg.KeystoreFile != "" {
			if _, err = a.account(ctx); err == nil {
				res, err = a.disp.Execute(ctx, args)
			}
		}
		if err != nil {
			return err
		}
		printResult(os.Stdout, res)
		if res != nil && res.Pending {
			fmt.Fprintln(os.Stderr, ui.Hint("check it with: ucwallet exec get_receipt "+res.TxHash.Hex()))
		}
		return nil
	},
}
