package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fortina-rp/intake/internal/model"
	"github.com/fortina-rp/intake/internal/service"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage staff accounts",
		Long:  "Create and list the staff accounts that can review applications through the admin API.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		username string
		password string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new staff account",
		Example: `  intake admin create --user Fortina --role Owner
  intake admin create --user Alina  # prompts for password, defaults to Moderator`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(username, password, role)
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "Account username (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleModerator), "Account role: Owner, Moderator, or Helper")
	cmd.MarkFlagRequired("user")

	return cmd
}

func runAdminCreate(username, password, roleStr string) error {
	parsedRole, err := model.ParseRole(roleStr)
	if err != nil {
		return err
	}

	// Prompt for password if not provided
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	store, err := openStore(fileCfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	hash, err := service.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &model.Admin{Username: username, PasswordHash: hash, Role: parsedRole}
	if err := store.CreateAdmin(context.Background(), admin); err != nil {
		return err
	}

	fmt.Printf("Created staff account %q (role: %s, id: %d)\n", username, parsedRole, admin.ID)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all staff accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(jsonOutput bool) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	store, err := openStore(fileCfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	admins, err := store.ListAdmins(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(admins)
	}

	if len(admins) == 0 {
		fmt.Println("No staff accounts found.")
		return nil
	}
	fmt.Printf("%-6s %-24s %s\n", "ID", "USER", "ROLE")
	for _, a := range admins {
		fmt.Printf("%-6d %-24s %s\n", a.ID, a.Username, a.Role)
	}
	return nil
}
