package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-scraper/internal/config"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Store or remove API keys in the OS keyring",
	Long:  "Manage API keys kept in the OS keyring under the service name " + config.KeyringService + ". Names: " + strings.Join(config.SecretNames(), ", ") + ".",
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store an API key; the value is read from --value or the first line of stdin",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretsSet,
}

var secretsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretsDelete,
}

var secretValue string

func init() {
	secretsSetCmd.Flags().StringVar(&secretValue, "value", "", "Secret value (read from stdin when omitted)")

	secretsCmd.AddCommand(secretsSetCmd, secretsDeleteCmd)
	rootCmd.AddCommand(secretsCmd)
}

func runSecretsSet(cmd *cobra.Command, args []string) error {
	value := secretValue
	if value == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("no secret value given on stdin")
		}
		value = strings.TrimSpace(line)
	}

	if err := config.SetSecret(args[0], value); err != nil {
		return fmt.Errorf("failed to store %s: %w", args[0], err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored %s in the keyring\n", args[0])
	return nil
}

func runSecretsDelete(cmd *cobra.Command, args []string) error {
	if err := config.DeleteSecret(args[0]); err != nil {
		return fmt.Errorf("failed to delete %s: %w", args[0], err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from the keyring\n", args[0])
	return nil
}
