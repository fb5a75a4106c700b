package main

import (
	"context"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"profile-selector/pkg/manager"
)

var listPing bool

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "Print profiles grouped, optionally filtered",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		var query string
		if len(args) == 1 {
			query = args[0]
		}
		list := a.sel.Display(query)

		var states map[string]manager.PingState
		if listPing {
			states = probeList(cmd.Context(), list, a.prefs.LoadPingPrefs())
		}
		return manager.WriteProfileList(os.Stdout, list, states, manager.LoadTheme(flags.theme))
	},
}

func init() {
	listCmd.Flags().BoolVar(&listPing, "ping", false, "Probe every listed host once")
}

// probeList probes each distinct, enabled profile once, a few at a time.
func probeList(ctx context.Context, list manager.DisplayList, prefs map[string]bool) map[string]manager.PingState {
	states := map[string]manager.PingState{}
	hosts := map[string]string{}
	for _, prof := range list.Flatten() {
		key := prof.Key()
		if prof.Host == "" {
			continue
		}
		if enabled, ok := prefs[key]; ok && !enabled {
			states[key] = manager.PingState{}
			continue
		}
		hosts[key] = prof.Host
	}

	var mu sync.Mutex
	p := prober()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for key, host := range hosts {
		g.Go(func() error {
			res := p.Probe(gctx, host, flags.timeout)
			st := manager.PingState{Enabled: true, Status: manager.PingDown}
			if res.Reachable {
				st.Status = manager.PingUp
				st.LatencyMs = res.LatencyMs
			}
			mu.Lock()
			states[key] = st
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return states
}
