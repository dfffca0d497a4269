package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/solatis/rulebuilder/internal/core/auth"
	"github.com/solatis/rulebuilder/internal/core/config"
	"github.com/solatis/rulebuilder/internal/core/db"
	"github.com/solatis/rulebuilder/internal/render"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Issue a new API key; the key is printed once",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyCreate,
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	Args:  cobra.NoArgs,
	RunE:  runAPIKeyList,
}

var apikeySecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a value for RB_HMAC_SECRET",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		val, err := config.GenerateHMACSecret()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), val)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyRevokeCmd, apikeyListCmd, apikeySecretCmd)
	apikeyCreateCmd.Flags().String("secret-id", "", "sign with this secret (default: the lowest configured secret id)")
}

func openKeyStore(cmd *cobra.Command) (*db.APIKeyStore, func(), error) {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return nil, nil, err
	}
	database, queries, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := requireMigrated(database); err != nil {
		database.Close()
		return nil, nil, err
	}
	return db.NewAPIKeyStore(queries), func() { database.Close() }, nil
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set RB_HMAC_SECRET environment variable)")
	}

	secretID, _ := cmd.Flags().GetString("secret-id")
	if secretID == "" {
		ids := make([]string, 0, len(secrets))
		for id := range secrets {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		secretID = ids[0]
	}
	secret, ok := secrets[secretID]
	if !ok {
		return fmt.Errorf("secret id %s is not configured", secretID)
	}

	store, closeDB, err := openKeyStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	key, hash, err := auth.GenerateAPIKey(secretID, secret)
	if err != nil {
		return err
	}
	id, err := store.Insert(args[0], secretID, hash)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "id:  %s\nkey: %s\n", id, key)
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openKeyStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()
	return store.Revoke(args[0])
}

func runAPIKeyList(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openKeyStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	keys, err := store.List()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.APIKeys(keys))
	return nil
}
