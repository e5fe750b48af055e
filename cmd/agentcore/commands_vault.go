package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildVaultCmd creates the "vault" command group over spec.md §4.6's
// credential vault.
func buildVaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage vaulted credentials",
		Long: `Store and retrieve named credentials through the OS keyring, falling
back to an encrypted file (AES via nacl/secretbox, key derived with scrypt)
when no keyring is reachable (set AGENTCORE_VAULT_PASSPHRASE for that
fallback path).`,
	}
	cmd.AddCommand(
		buildVaultPutCmd(),
		buildVaultGetCmd(),
		buildVaultDeleteCmd(),
		buildVaultListCmd(),
	)
	return cmd
}

func buildVaultPutCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "put <name> <value>",
		Short: "Store a credential",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.vault.Put(ctx, args[0], args[1]); err != nil {
				return fmt.Errorf("vault put: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func buildVaultGetCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Retrieve a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.close()
			value, err := a.vault.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("vault get: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func buildVaultDeleteCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.vault.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("vault delete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func buildVaultListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored credential names",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.close()
			names, err := a.vault.ListNames(ctx)
			if err != nil {
				return fmt.Errorf("vault list: %w", err)
			}
			w := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(w, "No credentials stored.")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(w, name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}
