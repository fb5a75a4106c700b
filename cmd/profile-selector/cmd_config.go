package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"profile-selector/pkg/manager"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the profile store",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the store path candidates and the one in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range manager.ConfigPathCandidates(flags.config) {
			fmt.Println(p)
		}
		_, path, err := manager.LoadConfig(flags.config)
		if err != nil {
			fmt.Printf("in use: none (%v)\n", err)
			return nil
		}
		fmt.Printf("in use: %s\n", path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and validate the profile store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := manager.LoadConfig(flags.config)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d groups, %d profiles\n", path, len(cfg.Groups), len(cfg.Profiles))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)
}
