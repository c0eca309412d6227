package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceVerifyCmd)
}

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Inspect and approve device bindings",
}

var deviceListCmd = &cobra.Command{
	Use:   "list <username>",
	Short: "List the devices bound to an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := svcs.Accounts.LookupUsername(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to find %s: %w", args[0], err)
		}

		devices, err := svcs.Devices.ListDevices(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputFormat != "table" {
			return formatOutput(out, devices)
		}

		if len(devices) == 0 {
			fmt.Fprintf(out, "No devices bound to %s.\n", args[0])
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DEVICE\tVERIFIED")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%t\n", d.DeviceID, d.Verified)
		}
		return w.Flush()
	},
}

var deviceVerifyCmd = &cobra.Command{
	Use:   "verify <username> <device_id>",
	Short: "Make a device the account's only verified device",
	Long: `Approve a device on behalf of an account.

The device is bound first if it is not yet known, and any device previously
verified for the account goes back to pending.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := svcs.Accounts.LookupUsername(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to find %s: %w", args[0], err)
		}

		resp, err := svcs.Devices.VerifyDevice(cmd.Context(), userID, args[1])
		if err != nil {
			return fmt.Errorf("failed to verify device: %w", err)
		}

		if outputFormat != "table" {
			return formatOutput(cmd.OutOrStdout(), resp)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Device %s verified for %s\n", resp.DeviceID, args[0])
		return nil
	},
}
