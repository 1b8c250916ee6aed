package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ulordchain/ucwallet/internal/config"
	"github.com/ulordchain/ucwallet/internal/ui"
	"github.com/ulordchain/ucwallet/internal/wallet"
)

var walletUseFlag bool

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallet key files",
}

var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new wallet and encrypt it into the keystore",
	Long: `Generate a fresh keypair and store it as an encrypted key file under
<data dir>/keystore. The password is asked twice and never stored unless
--remember is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pwd, err := ui.NewPassword()
		if err != nil {
			return err
		}
		acc, err := wallet.Generate()
		if err != nil {
			return err
		}
		path, err := wallet.NewKeyDir(cfg.KeystoreDir(), false).Save(acc, pwd)
		if err != nil {
			return err
		}
		logger.Info("wallet created", "address", acc.Address().Hex(), "keyfile", path)

		fmt.Println(ui.Success("Wallet created: " + ui.Addr(acc.Address().Hex())))
		fmt.Println(ui.Meta("key file: " + path))

		if remember {
			if err := wallet.DefaultKeyring(cfg.Dir()).Store(path, pwd); err != nil {
				fmt.Println(ui.Warn("could not remember password: " + err.Error()))
			}
		}
		if walletUseFlag {
			return useKeyFile(cfg, path)
		}
		fmt.Println(ui.Hint("Make it the default with: ucwallet --keystorefile " + path))
		return nil
	},
}

var walletAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "List the wallets in the keystore",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addrs := wallet.NewKeyDir(cfg.KeystoreDir(), false).Addresses()
		if len(addrs) == 0 {
			fmt.Println(ui.Info("No wallets in " + cfg.KeystoreDir()))
			fmt.Println(ui.Hint("Create one with: ucwallet wallet create"))
			return nil
		}
		t := ui.NewTable(ui.Column{Title: "#"}, ui.Column{Title: "Address"})
		for i, a := range addrs {
			t.AddRow(fmt.Sprint(i+1), a.Hex())
		}
		fmt.Print(t.Render())
		if cfg.KeystoreFile != "" {
			fmt.Println(ui.Meta("default key file: " + cfg.KeystoreFile))
		}
		return nil
	},
}

var walletForgetCmd = &cobra.Command{
	Use:   "forget [key file]",
	Short: "Remove a remembered key file password from the keychain",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.KeystoreFile
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no key file given and none configured")
		}
		if err := wallet.DefaultKeyring(cfg.Dir()).Delete(path); err != nil {
			return err
		}
		fmt.Println(ui.Success("Password forgotten for " + path))
		return nil
	},
}

func useKeyFile(c *config.Config, path string) error {
	c.KeystoreFile = path
	if err := c.Set("keystore_file", path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Println(ui.Success("Default key file set."))
	return nil
}

func init() {
	walletCreateCmd.Flags().BoolVar(&walletUseFlag, "use", false, "make the new wallet the default key file")
	walletCmd.AddCommand(walletCreateCmd, walletAddressCmd, walletForgetCmd)
}
