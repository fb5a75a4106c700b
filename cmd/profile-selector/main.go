package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"profile-selector/pkg/manager"
)

var version = "0.1.0"

var flags struct {
	config   string
	logPath  string
	theme    string
	query    string
	tmux     bool
	interval time.Duration
	timeout  time.Duration
	tcpPort  int
}

var rootCmd = &cobra.Command{
	Use:           "profile-selector [query]",
	Short:         "Pick and launch terminal profiles",
	Long:          "profile-selector lists SSH, telnet, serial and local shell profiles grouped and searchable, shows which hosts answer, and launches the one you pick.",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSelector,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("profile-selector %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "Path to the profile store (YAML or .toml; defaults to XDG paths)")
	pf.StringVar(&flags.logPath, "log", "", `Log file ("-" for stderr, "off" to disable)`)
	pf.StringVar(&flags.theme, "theme", "", "Path to a theme JSON file")
	pf.DurationVar(&flags.interval, "ping-interval", manager.DefaultPingInterval, "Delay between reachability probes")
	pf.DurationVar(&flags.timeout, "ping-timeout", manager.DefaultProbeTimeout, "Timeout of one reachability probe")
	pf.IntVar(&flags.tcpPort, "tcp-port", 0, "Probe by TCP connect to this port instead of ICMP ping")

	rootCmd.Flags().StringVar(&flags.query, "query", "", "Initial search query")
	rootCmd.Flags().BoolVar(&flags.tmux, "tmux", false, "Inside tmux, open launches in new windows and keep the selector running")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(duplicateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(togglePingCmd)
	rootCmd.AddCommand(configCmd)
}

func runSelector(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if w := a.watcher(); w != nil {
		go func() {
			if err := w.Run(ctx); err != nil {
				manager.Logf(a.logger, "[CONFIG] watcher stopped: %v", err)
			}
		}()
	}

	query := flags.query
	if len(args) == 1 {
		query = args[0]
	}
	spec, ok, err := manager.RunTUI(ctx, a.sel, a.notifier.C(), manager.UIOptions{
		InitialQuery: query,
		Theme:        manager.LoadTheme(flags.theme),
		LaunchInTmux: flags.tmux,
	})
	if err != nil || !ok {
		return err
	}

	// Stop polling before the launched session owns the terminal.
	a.sel.Close()
	return runLaunch(ctx, spec, a.logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "profile-selector:", err)
		}
		os.Exit(exitCode(err))
	}
}
