package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"profile-selector/pkg/manager"
)

var pingCmd = &cobra.Command{
	Use:   "ping <profile>",
	Short: "Probe one profile's host once",
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
		if p.Host == "" {
			return fmt.Errorf("%s: %w", p.Name, manager.ErrNoHost)
		}
		res := prober().Probe(cmd.Context(), p.Host, flags.timeout)
		switch {
		case !res.Reachable:
			fmt.Printf("%s (%s): down\n", p.Name, p.Host)
		case res.LatencyMs != nil:
			fmt.Printf("%s (%s): up %dms\n", p.Name, p.Host, *res.LatencyMs)
		default:
			fmt.Printf("%s (%s): up\n", p.Name, p.Host)
		}
		return nil
	},
}

var togglePingCmd = &cobra.Command{
	Use:   "toggle-ping <profile>",
	Short: "Turn reachability polling on or off for a profile",
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
		enabled, err := manager.TogglePingPref(a.prefs, p.Key())
		if err != nil {
			return err
		}
		state := "off"
		if enabled {
			state = "on"
		}
		fmt.Printf("polling %s for %s\n", state, p.Name)
		return nil
	},
}
