package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gonglijing/alertfi/internal/database"
	"github.com/gonglijing/alertfi/internal/models"
	"github.com/gonglijing/alertfi/internal/pwdutil"
)

func newAdminCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts in the local database",
	}
	cmd.AddCommand(newAdminCreateCommand(opts))
	return cmd
}

func newAdminCreateCommand(opts *globalOptions) *cobra.Command {
	var email, password, dbPath string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator",
		Example: `  alertfi admin create --email ops@example.com --password 's3cret!'
  alertfi admin create --db /var/lib/alertfi/alertfi.db --email ops@example.com --password 's3cret!'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				dbPath = opts.cfg.DBPath
			}
			hash, err := pwdutil.Hash(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			store, err := database.Open(cmd.Context(), database.Options{Path: dbPath})
			if err != nil {
				return err
			}
			defer store.Close()

			admin := &models.Admin{Email: email, Password: hash, Role: models.RoleAdmin}
			if err := store.CreateAdmin(cmd.Context(), admin); err != nil {
				return err
			}
			log.Info("admin created", "admin_id", admin.ID, "db", dbPath)
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %d (%s)\n", admin.ID, admin.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "administrator e-mail")
	cmd.Flags().StringVar(&password, "password", "", "administrator password")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
