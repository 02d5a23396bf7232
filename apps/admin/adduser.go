package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philosothon/philosothon/core"
	"github.com/philosothon/philosothon/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var email, first, last string
	var isAdmin bool

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a confirmed user, or update the password and roles of an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword("Enter password:")
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			usr, err := cli.addUser(cmd.Context(), email, first, last, pwd, isAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "user %s (%s) saved\n", usr.Email, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The user's email. The password will be prompted next.")
	cmd.Flags().StringVar(&first, "first", "", "First name")
	cmd.Flags().StringVar(&last, "last", "", "Last name")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Give all admin roles")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(ctx context.Context, email, first, last, pwd string, isAdmin bool) (user.User, error) {
	var roles []string
	if isAdmin {
		roles = user.AdminRoles
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return cli.usrSvc.Create(ctx, user.NewUser{
			FirstName:       first,
			LastName:        last,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
			Confirmed:       true,
		})
	} else if err != nil {
		return user.User{}, err
	}

	active := true
	usr, err = cli.usrSvc.Update(ctx, usr.ID, user.UpdateUser{
		FirstName:       core.CleanString(first),
		LastName:        core.CleanString(last),
		IsActive:        &active,
		Roles:           roles,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}
