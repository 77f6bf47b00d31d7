package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"maclock/internal/adapter/primary/web"
	"maclock/internal/adapter/secondary/repository"
	"maclock/internal/domain"
	"maclock/internal/logging"
	"maclock/internal/usecase"
)

func (a *app) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lock loop and the HTTP control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = rt.uc.Config().Addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			srv := web.NewServer(rt.uc, addr)
			fmt.Fprintf(cmd.OutOrStdout(), "maclock API running at http://%s\n", addr)
			logging.Infof("control API: http://%s", addr)

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address host:port (default from config)")
	return cmd
}

func (a *app) newLockCmd() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Lock the screen and arm the alarm (AC power required)",
		Long: "Lock the screen and arm the alarm. AC power must be connected.\n" +
			"Outside the shell the lock is released when the command exits, so\n" +
			"it waits for the session to be unlocked unless --wait=false.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			updates := rt.uc.Watch()
			defer rt.uc.Unwatch(updates)

			if err := rt.uc.Lock(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "locked")
			if !wait {
				return nil
			}

			for {
				select {
				case st, ok := <-updates:
					if !ok {
						return nil
					}
					if !st.Locked {
						fmt.Fprintln(out, "unlocked")
						return nil
					}
					if st.Alarming {
						fmt.Fprintln(out, "ALARM: power disconnected")
					}
				case <-ctx.Done():
					restored, err := rt.uc.Unlock(context.Background())
					if err != nil {
						return err
					}
					printUnlock(out, restored)
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", true, "block until the session is unlocked")
	return cmd
}

func (a *app) newUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Disarm the alarm and restore audio (retries a pending restore)",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			restored, err := rt.uc.Unlock(cmd.Context())
			if err != nil {
				return err
			}
			printUnlock(cmd.OutOrStdout(), restored)
			return nil
		},
	}
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show power source, lock state and output configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			cfg, ok, err := rt.uc.OutputConfiguration(cmd.Context())
			if err != nil {
				return err
			}
			var output *domain.OutputConfiguration
			if ok {
				output = &cfg
			}
			printStatus(cmd.OutOrStdout(), rt.platform.Name, rt.uc.Status(), output, rt.uc.History())
			return nil
		},
	}
}

func (a *app) newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			devices, err := rt.uc.Devices(cmd.Context())
			if err != nil {
				return err
			}
			printDevices(cmd.OutOrStdout(), devices)
			return nil
		},
	}
}

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded lock transitions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			events, err := rt.uc.Events(limit)
			if err != nil {
				return err
			}
			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events (0 for all)")
	return cmd
}

func (a *app) newAudioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Run an output coordinator operation",
		Args:  cobra.ArbitraryArgs,
		RunE:  runGroup("audio"),
	}
	actions := []struct {
		action usecase.AudioAction
		short  string
	}{
		{usecase.AudioMute, "Mute the default outputs"},
		{usecase.AudioUnmute, "Unmute the default outputs"},
		{usecase.AudioMaximize, "Set the default outputs to full volume"},
		{usecase.AudioInternal, "Route all sounds through the built-in output"},
		{usecase.AudioSwitch, "Toggle between the built-in output and the previous outputs"},
	}
	for _, act := range actions {
		action := act.action
		cmd.AddCommand(&cobra.Command{
			Use:   string(action),
			Short: act.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := a.runtime()
				if err != nil {
					return err
				}
				if err := rt.uc.Audio(cmd.Context(), action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "audio %s done\n", action)
				return nil
			},
		})
	}
	return cmd
}

// runGroup prints help for a bare command group and rejects an unknown
// subcommand as an error.
func runGroup(name string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown %s action %q", name, args[0])
		}
		return cmd.Help()
	}
}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
		Args:  cobra.ArbitraryArgs,
		RunE:  runGroup("config"),
	}
	cmd.AddCommand(a.newConfigGetCmd(), a.newConfigSetCmd())
	return cmd
}

// loadConfig reads from the running use case when there is one, so the
// shell shows what the loop will persist next.
func (a *app) loadConfig() (domain.Config, domain.History, error) {
	if a.rt != nil {
		return a.rt.uc.Config(), a.rt.uc.History(), nil
	}
	repo, err := repository.NewFileRepository(a.cfgPath)
	if err != nil {
		return domain.Config{}, domain.History{}, err
	}
	return repo.Load()
}

func (a *app) newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, history, err := a.loadConfig()
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), cfg, history)
		},
	}
}

func (a *app) newConfigSetCmd() *cobra.Command {
	var (
		builtIn      string
		alarmSound   string
		pollInterval time.Duration
		retries      int
		retryDelay   time.Duration
		addr         string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, history, err := a.loadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("builtin-output") {
				cfg.BuiltInOutputName = builtIn
			}
			if flags.Changed("alarm-sound") {
				cfg.AlarmSound = alarmSound
			}
			if flags.Changed("poll-interval") {
				cfg.PollInterval = pollInterval
			}
			if flags.Changed("restore-retries") {
				cfg.RestoreRetries = retries
			}
			if flags.Changed("restore-retry-delay") {
				cfg.RestoreRetryDelay = retryDelay
			}
			if flags.Changed("addr") {
				cfg.Addr = addr
			}

			if a.rt != nil {
				err = a.rt.uc.UpdateConfig(cfg)
			} else {
				err = saveConfig(a.cfgPath, cfg, history)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "saved")
			return nil
		},
	}
	def := domain.DefaultConfig()
	cmd.Flags().StringVar(&builtIn, "builtin-output", def.BuiltInOutputName, "name of the built-in output device")
	cmd.Flags().StringVar(&alarmSound, "alarm-sound", def.AlarmSound, "sound file looped by the alarm")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", def.PollInterval, "platform polling interval e.g. 500ms")
	cmd.Flags().IntVar(&retries, "restore-retries", def.RestoreRetries, "audio restore attempts after unlock")
	cmd.Flags().DurationVar(&retryDelay, "restore-retry-delay", def.RestoreRetryDelay, "first restore retry delay")
	cmd.Flags().StringVar(&addr, "addr", def.Addr, "control API listen address")
	return cmd
}

func saveConfig(path string, cfg domain.Config, history domain.History) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	repo, err := repository.NewFileRepository(path)
	if err != nil {
		return err
	}
	return repo.Save(cfg, history)
}

func (a *app) newSimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Drive the simulated platform (--platform sim)",
		Args:  cobra.ArbitraryArgs,
		RunE:  runGroup("sim"),
	}
	cmd.AddCommand(&cobra.Command{
		Use:       "power <ac|battery|ups|unknown>",
		Short:     "Change the simulated power source",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"ac", "battery", "ups", "unknown"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := simIdentifiers[args[0]]
			if !ok {
				return fmt.Errorf("unknown power source %q", args[0])
			}
			rt, err := a.simulator()
			if err != nil {
				return err
			}
			rt.sim.Power.SetSource(id)
			fmt.Fprintf(cmd.OutOrStdout(), "power source: %s\n", args[0])
			return nil
		},
	}, &cobra.Command{
		Use:   "unlock",
		Short: "Simulate the user unlocking the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.simulator()
			if err != nil {
				return err
			}
			rt.sim.Session.TriggerUnlock()
			fmt.Fprintln(cmd.OutOrStdout(), "session unlocked")
			return nil
		},
	})
	return cmd
}

var simIdentifiers = map[string]string{
	"ac":      domain.ACPowerIdentifier,
	"battery": domain.BatteryPowerIdentifier,
	"ups":     domain.UPSPowerIdentifier,
	"unknown": "Off Line",
}
