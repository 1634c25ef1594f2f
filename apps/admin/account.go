package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/account"
)

func (cli *commandLine) createAccountCmd() *cobra.Command {
	var name, email string
	var roles []string

	cmd := &cobra.Command{
		Use:   "createaccount",
		Short: "Create an account, or update the password and roles of an existing one",
		Long: `Create an account. The password is prompted next.

Example:
  $ admin createaccount --name "Registry Authority" --email authority@registry.org --role authority:`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			acc, err := cli.saveAccount(cmd.Context(), name, email, pwd, roles)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %s (%s) saved\n", acc.Email, acc.Address)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "The account holder's name")
	cmd.Flags().StringVar(&email, "email", "", "The account email")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Roles to grant (authority:, institution:, student:)")
	return cmd
}

// saveAccount updates or creates an account.Account
func (cli *commandLine) saveAccount(ctx context.Context, name, email, pwd string, roles []string) (account.Account, error) {
	accounts := cli.services.Accounts
	active := true

	acc, err := accounts.GetByEmail(ctx, email)
	if err != nil {
		if !core.IsNotFound(err) {
			return account.Account{}, err
		}
		if name == "" {
			name = email
		}
		return accounts.Create(ctx, account.NewAccount{
			Name:            name,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		})
	}
	return accounts.Update(ctx, acc, account.UpdateAccount{
		Name:            name,
		IsActive:        &active,
		Roles:           roles,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset an account's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			return cli.resetPassword(cmd.Context(), email, pwd)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The account email. The password will be prompted next.")
	return cmd
}

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	acc, err := cli.services.Accounts.GetByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	_, err = cli.services.Accounts.Update(ctx, acc, account.UpdateAccount{Password: pwd, PasswordConfirm: pwd})
	return err
}
