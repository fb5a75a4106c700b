package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var duplicateCmd = &cobra.Command{
	Use:   "duplicate <profile>",
	Short: `Store a copy of a profile named "<name> copy"`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.resolve(args[0])
		if err != nil {
			return err
		}
		if err := a.sel.Duplicate(cmd.Context(), p); err != nil {
			return err
		}
		fmt.Printf("duplicated %s\n", p.Name)
		return nil
	},
}

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <profile>",
	Short: "Remove a stored profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.resolve(args[0])
		if err != nil {
			return err
		}
		if !deleteYes {
			return fmt.Errorf("refusing to delete %q without --yes", p.Name)
		}
		if err := a.sel.Delete(cmd.Context(), p); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", p.Name)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <profile>",
	Short: "Edit a stored profile in a form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.resolve(args[0])
		if err != nil {
			return err
		}
		return a.sel.Edit(cmd.Context(), p)
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}
