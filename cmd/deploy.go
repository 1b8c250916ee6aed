package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/ulordchain/ucwallet/internal/contract"
	"github.com/ulordchain/ucwallet/internal/deploy"
	"github.com/ulordchain/ucwallet/internal/ui"
)

var (
	deployConfigFlag string
	deploySourcesDir string
	deployNoActivate bool
	deployYes        bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Compile, deploy and activate the contracts of a deployment config",
	Long: `Compile every contract named in the deploy section's sortkeys, deploy them
in that order, persist artifacts and addresses, then run the activate section.

  ucwallet deploy --deploy-config deploy_contract.json --sources sols`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptible(cmd.Context())
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		signer, err := a.account(ctx)
		if err != nil {
			return err
		}

		planPath := firstNonEmpty(deployConfigFlag, a.cfg.DeployConfig)
		sources := firstNonEmpty(deploySourcesDir, a.cfg.SourcesDir)
		if !deployYes {
			q := fmt.Sprintf("Deploy %s from %s as %s to %s?", planPath, sources, signer.Address().Hex(), a.cfg.Provider)
			if !ui.Confirm(os.Stdin, os.Stderr, q) {
				fmt.Println(ui.Meta("Cancelled."))
				return nil
			}
		}

		res, err := a.runDeploy(ctx, signer, planPath, sources, deployNoActivate)
		if err != nil {
			return err
		}
		fmt.Println(renderDeployment(res))
		return nil
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Run the activate section against the persisted contract addresses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptible(cmd.Context())
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		signer, err := a.account(ctx)
		if err != nil {
			return err
		}
		rep, err := a.runActivate(ctx, signer, firstNonEmpty(deployConfigFlag, a.cfg.DeployConfig))
		if err != nil {
			return err
		}
		fmt.Println(renderReport(rep))
		if n := rep.Failed(); n > 0 {
			return fmt.Errorf("%d activation call(s) failed", n)
		}
		return nil
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployConfigFlag, "deploy-config", "", "deployment config (default from config: deploy_config)")
	deployCmd.Flags().StringVar(&deploySourcesDir, "sources", "", "directory holding <Name>.sol files")
	deployCmd.Flags().BoolVar(&deployNoActivate, "no-activate", false, "skip the activate section")
	deployCmd.Flags().BoolVarP(&deployYes, "yes", "y", false, "do not ask for confirmation")

	activateCmd.Flags().StringVar(&deployConfigFlag, "deploy-config", "", "deployment config (default from config: deploy_config)")
}

func (a *app) activator() *deploy.Activator {
	return &deploy.Activator{
		Chain:          a.client,
		Transactor:     a.tx,
		Store:          a.store,
		Gas:            a.callGas(),
		ReceiptTimeout: a.cfg.ReceiptTimeout,
		FailureEvents:  a.cfg.ActivationFailureEvents,
		Log:            a.log,
	}
}

func (a *app) runDeploy(ctx context.Context, signer contract.Signer, planPath, sourcesDir string, skipActivation bool) (*deploy.Result, error) {
	plan, err := deploy.LoadPlan(planPath, sourcesDir)
	if err != nil {
		return nil, err
	}
	comp, err := newCompiler(a.cfg)
	if err != nil {
		return nil, err
	}

	orch := &deploy.Orchestrator{
		Compiler:      comp,
		Chain:         a.client,
		Transactor:    a.tx,
		Store:         a.store,
		AddressesPath: a.cfg.AddressesFile(),
		Activator:     a.activator(),
		Options: deploy.Options{
			Gas:            a.deployGas(),
			ReceiptTimeout: a.cfg.DeployTimeout,
			SettleDelay:    a.cfg.SettleDelay,
			SkipActivation: skipActivation,
		},
		Log: a.log,
	}
	return orch.Deploy(ctx, signer, plan)
}

// runActivate replays the activate section using contractAddresses.json.
func (a *app) runActivate(ctx context.Context, signer contract.Signer, planPath string) (*deploy.Report, error) {
	plan, err := deploy.LoadPlan(planPath, a.cfg.SourcesDir)
	if err != nil {
		return nil, err
	}
	addrs, err := contract.ReadAddresses(a.cfg.AddressesFile())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrNoDeployment, err)
	}
	table, err := deploy.NewAddressTable(signer.Address(), plan.Accounts)
	if err != nil {
		return nil, err
	}
	for name, addr := range addrs {
		table.Set(name, addr)
	}
	return a.activator().Run(ctx, signer, table, plan.Activations), nil
}

func renderDeployment(res *deploy.Result) string {
	t := ui.NewTable(
		ui.Column{Title: "Contract"},
		ui.Column{Title: "Address"},
		ui.Column{Title: "Tx"},
		ui.Column{Title: "Gas used"},
	)
	for _, d := range res.Deployments {
		tx, gas := "literal", "-"
		if !d.Literal {
			tx, gas = ui.TruncateAddr(d.TxHash.Hex()), fmt.Sprint(d.GasUsed)
		}
		t.AddRow(d.Name, d.Address.Hex(), tx, gas)
	}
	out := t.Render()
	if res.Activation != nil {
		out += "\n" + renderReport(res.Activation)
	}
	return strings.TrimRight(out, "\n")
}

func renderReport(rep *deploy.Report) string {
	if len(rep.Calls) == 0 {
		return ui.Meta("no activation calls")
	}
	t := ui.NewTable(
		ui.Column{Title: "Contract"},
		ui.Column{Title: "Function"},
		ui.Column{Title: "Result"},
		ui.Column{Title: "Events"},
	)
	for _, c := range rep.Calls {
		result := "ok"
		if c.Err != nil {
			result = c.Err.Error()
		} else if c.TxHash != (common.Hash{}) {
			result = "ok " + ui.TruncateAddr(c.TxHash.Hex())
		}
		t.AddRow(c.Contract, c.Function, result, strings.Join(c.Events, ","))
	}
	summary := ui.Success(fmt.Sprintf("%d activation call(s) succeeded", len(rep.Calls)))
	if n := rep.Failed(); n > 0 {
		summary = ui.Warn(fmt.Sprintf("%d of %d activation call(s) failed", n, len(rep.Calls)))
	}
	return t.Render() + summary
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
