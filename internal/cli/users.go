package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/internal/service/auth"
	"github.com/twocards/backoffice/internal/service/users"
)

var (
	userPassword string
	userRole     string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage staff accounts",
}

var usersCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a staff account on behalf of the admin account",
	Long: `Create a staff account. The action is audited as performed by the
seeded admin account.

Examples:
  backoffice users create sara --password 's3cret-pass'
  backoffice users create omar --password 's3cret-pass' --role admin`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersCreate,
}

func init() {
	usersCreateCmd.Flags().StringVar(&userPassword, "password", "", "initial password (required)")
	usersCreateCmd.Flags().StringVar(&userRole, "role", string(user.RoleEmployee), "admin or employee")
	_ = usersCreateCmd.MarkFlagRequired("password")
	usersCmd.AddCommand(usersCreateCmd)
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	admin, ok, err := application.UserRepo.FindByUsername(ctx, auth.AdminUsername)
	if err != nil {
		return fmt.Errorf("find admin: %w", err)
	}
	if !ok {
		return fmt.Errorf("admin account %q is missing", auth.AdminUsername)
	}

	created, err := application.Users.Create(ctx, admin, users.CreateInput{
		Username: args[0],
		Password: userPassword,
		Role:     user.Role(userRole),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (id %d, role %s)\n", created.Username, created.ID, created.Role)
	return nil
}
