package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/08star/my-auth-app/internal/application/dto"
)

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userDisableCmd)
	userCmd.AddCommand(userEnableCmd)
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username> <password>",
	Short: "Create an active account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := svcs.Accounts.Register(cmd.Context(), &dto.RegisterRequest{
			Username: args[0],
			Password: args[1],
		})
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		if outputFormat != "table" {
			return formatOutput(cmd.OutOrStdout(), resp)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", resp.Username, resp.UserID)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := svcs.Accounts.ListUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputFormat != "table" {
			return formatOutput(out, users)
		}

		if len(users) == 0 {
			fmt.Fprintln(out, "No users found. Use 'devicectl user create' to add one.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USERNAME\tID\tACTIVE\tCREATED")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
				u.Username, u.UserID, u.Active, u.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var userDisableCmd = &cobra.Command{
	Use:   "disable <username>",
	Short: "Disable an account and end its sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setActive(cmd, args[0], false)
	},
}

var userEnableCmd = &cobra.Command{
	Use:   "enable <username>",
	Short: "Re-enable an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setActive(cmd, args[0], true)
	},
}

func setActive(cmd *cobra.Command, username string, active bool) error {
	id, err := svcs.Accounts.SetActiveByUsername(cmd.Context(), username, active)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", username, err)
	}

	if outputFormat != "table" {
		u, err := svcs.Accounts.GetUser(cmd.Context(), id)
		if err != nil {
			return err
		}
		return formatOutput(cmd.OutOrStdout(), u)
	}

	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %s %s\n", username, state)
	return nil
}
