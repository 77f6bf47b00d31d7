package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"maclock/internal/adapter/secondary/journal"
	"maclock/internal/adapter/secondary/platform"
	"maclock/internal/adapter/secondary/repository"
	"maclock/internal/adapter/secondary/sim"
	"maclock/internal/domain"
	"maclock/internal/logging"
	"maclock/internal/usecase"
)

// app holds the global flags and the runtime shared by commands. The shell
// keeps one app for its whole session so the lock survives between lines.
type app struct {
	cfgPath      string
	verbosity    int
	platformName string

	inShell bool
	rt      *runtime
}

// runtime is a started use case over an open platform.
type runtime struct {
	uc       usecase.LockUseCase
	repo     *repository.FileRepository
	platform domain.Platform
	sim      *sim.Platform
	journal  *journal.SQLiteJournal
	cancel   context.CancelFunc
}

// Execute runs the command line and releases the runtime afterwards, which
// unlocks a lock still held by a one-shot command.
// This is the primary adapter that translates CLI inputs to use case calls.
func Execute(args []string) error {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.Execute()
	return errors.Join(err, a.close())
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maclock",
		Short: "Theft alarm that watches the power cable while the screen is locked",
		Long: "maclock locks the screen, keeps the machine awake and raises an alarm\n" +
			"through the built-in speaker when external power is disconnected.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Shell lines rebuild the tree; they inherit the session's flag values.
	cfgPath, platformName, verbosity := a.cfgPath, a.platformName, a.verbosity
	if cfgPath == "" {
		cfgPath = repository.DefaultPath()
	}
	if platformName == "" {
		platformName = platform.Auto
	}
	cmd.PersistentFlags().StringVar(&a.cfgPath, "config", cfgPath, "config file path")
	cmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "increase logging (-v, -vv, ... up to 4)")
	cmd.PersistentFlags().StringVar(&a.platformName, "platform", platformName, "platform adapters: auto or sim")
	// Defining the count flag zeroes it; -v on a shell line adds to the session level.
	a.verbosity = verbosity
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.SetVerbosity(a.verbosity)
	}

	cmd.AddCommand(
		a.newServeCmd(),
		a.newLockCmd(),
		a.newUnlockCmd(),
		a.newStatusCmd(),
		a.newDevicesCmd(),
		a.newHistoryCmd(),
		a.newAudioCmd(),
		a.newConfigCmd(),
		a.newSimCmd(),
		a.newShellCmd(),
	)
	return cmd
}

// runtime opens the platform and starts the lock loop on first use.
func (a *app) runtime() (*runtime, error) {
	if a.rt != nil {
		return a.rt, nil
	}
	repo, err := repository.NewFileRepository(a.cfgPath)
	if err != nil {
		return nil, err
	}
	cfg, _, err := repo.Load()
	if err != nil {
		return nil, err
	}
	p, s, err := platform.Open(a.platformName, cfg)
	if err != nil {
		return nil, err
	}
	var opts []usecase.Option
	j, err := journal.Open(journal.DefaultPath(repo.Path()))
	if err != nil {
		logging.Warnf("event journal disabled: %v", err)
		j = nil
	} else {
		opts = append(opts, usecase.WithJournal(j))
	}
	uc, err := usecase.NewLockUseCase(repo, p, opts...)
	if err != nil {
		if p.Close != nil {
			err = errors.Join(err, p.Close())
		}
		if j != nil {
			err = errors.Join(err, j.Close())
		}
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	uc.Start(ctx)
	logging.Debugf("platform %s ready (config %s)", p.Name, repo.Path())

	a.rt = &runtime{uc: uc, repo: repo, platform: p, sim: s, journal: j, cancel: cancel}
	return a.rt, nil
}

// close unlocks, stops the loop and releases the platform.
func (a *app) close() error {
	rt := a.rt
	if rt == nil {
		return nil
	}
	a.rt = nil
	err := rt.uc.Shutdown(context.Background())
	rt.cancel()
	if rt.platform.Close != nil {
		err = errors.Join(err, rt.platform.Close())
	}
	if rt.journal != nil {
		err = errors.Join(err, rt.journal.Close())
	}
	return err
}

func (a *app) simulator() (*runtime, error) {
	rt, err := a.runtime()
	if err != nil {
		return nil, err
	}
	if rt.sim == nil {
		return nil, fmt.Errorf("%w: run with --platform sim", domain.ErrNotSimulated)
	}
	return rt, nil
}
