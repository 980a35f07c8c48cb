package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/raigen/pkg/config"
	"github.com/harrisonrobin/raigen/pkg/model"
	"github.com/harrisonrobin/raigen/pkg/planfile"
	"github.com/harrisonrobin/raigen/pkg/taskwarrior"
	"github.com/harrisonrobin/raigen/pkg/tui"
)

func newConnectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect Google Calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			if err := e.orch.ConnectCalendar(cmd.Context(), e.identity); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Google connected!")
			return nil
		},
	}
}

// planInputs selects where generation inputs come from.
type planInputs struct {
	file       string
	taskFilter string

	// exportTasks runs the taskwarrior export for a filter.
	exportTasks func(filter []string) ([]taskwarrior.Task, error)
}

func bindPlanInputs(cmd *cobra.Command) *planInputs {
	in := &planInputs{exportTasks: taskwarrior.NewClient().GetTasks}
	cmd.Flags().StringVar(&in.file, "file", "", "YAML plan file with tasks, free_windows and preferences")
	cmd.Flags().StringVar(&in.taskFilter, "taskwarrior", "", "take tasks from taskwarrior using this filter, e.g. \"+next\"")
	return in
}

// load reads the plan file (or the sample one) and, when a taskwarrior
// filter is set, replaces its tasks with the exported pending tasks.
func (in *planInputs) load(cfg *config.Config) (planfile.File, error) {
	path := in.file
	if path == "" {
		path = cfg.TasksFile
	}
	f, err := planfile.Load(path)
	if err != nil {
		return planfile.File{}, err
	}
	if in.taskFilter == "" {
		return f, nil
	}

	tw, err := in.exportTasks(strings.Fields(in.taskFilter))
	if err != nil {
		return planfile.File{}, err
	}
	f.Tasks = taskwarrior.ToPlanTasks(tw)
	if len(f.Tasks) == 0 {
		return planfile.File{}, fmt.Errorf("no pending taskwarrior tasks match %q", in.taskFilter)
	}
	if err := f.Validate(); err != nil {
		return planfile.File{}, fmt.Errorf("taskwarrior tasks: %w", err)
	}
	return f, nil
}

func newPlanCmd(opts *globalOptions) *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Fetch, generate and update today's plan",
	}

	today := &cobra.Command{
		Use:   "today",
		Short: "Show today's plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			plan, err := e.orch.FetchPlan(cmd.Context(), e.identity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderPlan(plan, true))
			return nil
		},
	}

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate today's plan",
		Args:  cobra.NoArgs,
	}
	inputs := bindPlanInputs(generate)
	generate.RunE = func(cmd *cobra.Command, args []string) error {
		e, err := setup(opts)
		if err != nil {
			return err
		}
		f, err := inputs.load(e.cfg)
		if err != nil {
			return err
		}
		plan, err := e.orch.GeneratePlan(cmd.Context(), e.identity, f.Tasks, f.FreeWindows, f.Preferences)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tui.RenderPlan(plan, true))
		return nil
	}

	var undo bool
	complete := &cobra.Command{
		Use:   "complete <block-id>",
		Short: "Mark a block of today's plan as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			adh, err := e.orch.CompleteBlock(cmd.Context(), e.identity, args[0], !undo)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Adherence: %d/%d blocks\n", adh.Completed, adh.Planned)
			return nil
		},
	}
	complete.Flags().BoolVar(&undo, "undo", false, "mark the block as not done")

	var delta int
	replan := &cobra.Command{
		Use:   "replan",
		Short: "Rebuild the rest of today's plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			if err := e.orch.RequestReplan(cmd.Context(), e.identity, delta); err != nil {
				return err
			}
			plan, err := e.orch.FetchPlan(cmd.Context(), e.identity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderPlan(plan, true))
			return nil
		},
	}
	replan.Flags().IntVar(&delta, "delta", 30, "minutes to shift the remaining blocks")

	planCmd.AddCommand(today, generate, complete, replan)
	return planCmd
}

func newAgendaCmd(opts *globalOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Sync and show upcoming calendar events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			if days <= 0 {
				days = e.cfg.AgendaDays
			}
			events, err := e.orch.SyncCalendar(cmd.Context(), e.identity, days)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderAgenda(events))
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 0, "days ahead to sync (default from config)")
	return cmd
}

func newBlockCmd(opts *globalOptions) *cobra.Command {
	var req model.BlockRequest
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Create or update a calendar block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			req.UserID = e.identity
			ack, err := e.orch.UpsertBlock(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", ack.Summary, ack.EventID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "block title")
	cmd.Flags().StringVar(&req.StartISO, "start", "", "start time, RFC 3339")
	cmd.Flags().StringVar(&req.EndISO, "end", "", "end time, RFC 3339")
	cmd.Flags().StringVar(&req.EventID, "event-id", "", "existing event to update")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newPushCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Register this installation for reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			outcome, _ := e.orch.ObserveIdentity(cmd.Context(), e.identity)
			fmt.Fprintf(cmd.OutOrStdout(), "Push: %s\n", outcome)
			return nil
		},
	}
}

func newBootstrapCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Print the server's default preferences as a plan file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			b, err := e.orch.Bootstrap(cmd.Context(), e.identity)
			if err != nil {
				return err
			}
			f := planfile.Default()
			f.Preferences = b.Prefs
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(f)
		},
	}
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := saveConfig(opts, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set to: %s\n", args[0], args[1])
			return nil
		},
	})
	return configCmd
}

func newUICmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive screen",
		Args:  cobra.NoArgs,
	}
	inputs := bindPlanInputs(cmd)
	var logPath string
	cmd.Flags().StringVar(&logPath, "log-file", "", "log file while the screen is open (default raigen.log next to the config)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		e, logFile, err := prepareUI(opts, logPath)
		if err != nil {
			return err
		}
		defer logFile.Close()
		source := func() (planfile.File, error) { return inputs.load(e.cfg) }
		app := tui.NewApp(cmd.Context(), e.orch, e.identity, e.cfg.AgendaDays, source)
		_, err = tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	}
	return cmd
}

// prepareUI wires the orchestrator with every log line going to a file, since
// the screen owns the terminal while it runs.
func prepareUI(opts *globalOptions, logPath string) (*env, io.Closer, error) {
	if logPath == "" {
		dir := filepath.Dir(opts.configPath)
		if opts.configPath == "" {
			var err error
			if dir, err = config.GetConfigDir(); err != nil {
				return nil, nil, err
			}
		}
		logPath = filepath.Join(dir, "raigen.log")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := tea.LogToFile(logPath, "raigen")
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	e, err := setupWithLog(opts, f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return e, f, nil
}
