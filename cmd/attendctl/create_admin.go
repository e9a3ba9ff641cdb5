package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"smartattendance/internal/apperr"
	"smartattendance/internal/logging"
	"smartattendance/internal/users"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin <firstname> <lastname> <email>",
	Short: "Create an admin account or reset its password",
	Long: `Creates an ADMIN user with the given name and email. When the email already
belongs to an admin its password is reset instead. The password is read from
--password or the ADMIN_PASSWORD environment variable.`,
	Args: cobra.ExactArgs(3),
	RunE: runCreateAdmin,
}

func init() {
	rootCmd.AddCommand(createAdminCmd)
	createAdminCmd.Flags().String("password", "", "Admin password (defaults to $ADMIN_PASSWORD)")
}

type adminCreator interface {
	CreateOrResetAdmin(ctx context.Context, firstname, lastname, email, password string) (users.AdminResult, error)
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	password, err := cmd.Flags().GetString("password")
	if err != nil {
		panic(fmt.Sprintf("flag error for --password: %v", err))
	}
	if password == "" {
		password = os.Getenv("ADMIN_PASSWORD")
	}

	cfg, db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := users.NewService(users.NewRepository(db.Client), logging.New(cfg.Env, "attendctl"))
	return createAdmin(cmd.Context(), cmd.OutOrStdout(), svc, args[0], args[1], args[2], password)
}

func createAdmin(ctx context.Context, out io.Writer, svc adminCreator, firstname, lastname, email, password string) error {
	if password == "" {
		return errors.New("password required: pass --password or set ADMIN_PASSWORD")
	}
	res, err := svc.CreateOrResetAdmin(ctx, firstname, lastname, email, password)
	if errors.Is(err, apperr.ErrForbidden) {
		return fmt.Errorf("a user with email %s exists but is not an ADMIN", email)
	}
	if err != nil {
		return err
	}
	if res.Created {
		fmt.Fprintf(out, "Admin %s created.\n", email)
	} else {
		fmt.Fprintf(out, "Admin %s password was reset.\n", email)
	}
	return nil
}
