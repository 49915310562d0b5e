// Package main provides the CLI entrypoint for trafficwatch.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/trafficwatch/internal/config"
	"github.com/verte-zerg/trafficwatch/internal/csvlog"
	"github.com/verte-zerg/trafficwatch/internal/export"
	"github.com/verte-zerg/trafficwatch/internal/model"
	"github.com/verte-zerg/trafficwatch/internal/monitor"
	"github.com/verte-zerg/trafficwatch/internal/process"
	"github.com/verte-zerg/trafficwatch/internal/render"
	"github.com/verte-zerg/trafficwatch/internal/stats"
	"github.com/verte-zerg/trafficwatch/internal/store"
	"github.com/verte-zerg/trafficwatch/internal/tui"
)

const (
	defaultLogPath    = "traffic_data.csv"
	defaultExecutable = "./traffic"
	defaultGroupLabel = "Road"
	defaultBarsWidth  = 80
)

var (
	watchLog          string
	watchExecutable   string
	watchArgs         []string
	watchDir          string
	watchInput        string
	watchOutput       string
	watchInterval     time.Duration
	watchHeader       string
	watchGroupColumn  string
	watchTimingColumn string
	watchGroupLabel   string
	watchDebugLog     string

	runPlain bool

	summaryBars bool
	summaryDB   string

	exportPNG string
	exportDB  string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trafficwatch",
		Short:         "Live monitor for the traffic simulation",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd, false)
		},
	}
	addLogFlags(rootCmd)
	addProcessFlags(rootCmd)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSummaryCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addLogFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&watchLog, "log", defaultLogPath, "simulation log file")
	cmd.Flags().StringVar(&watchHeader, "header", csvlog.DefaultHeader, "header written when the log is reset")
	cmd.Flags().StringVar(&watchGroupColumn, "group-column", csvlog.DefaultGroupColumn, "column holding the group id")
	cmd.Flags().StringVar(&watchTimingColumn, "timing-column", csvlog.DefaultTimingColumn, "column holding the timing")
	cmd.Flags().StringVar(&watchGroupLabel, "group-label", defaultGroupLabel, "label used in panel titles")
	cmd.Flags().StringVar(&watchDebugLog, "debug-log", "", "write debug logs to this file")
}

func addProcessFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&watchExecutable, "executable", defaultExecutable, "simulation executable")
	cmd.Flags().StringSliceVar(&watchArgs, "arg", nil, "argument passed to the simulation (repeatable)")
	cmd.Flags().StringVar(&watchDir, "dir", "", "working directory of the simulation")
	cmd.Flags().StringVar(&watchInput, "input", "", "text fed to the simulation's stdin")
	cmd.Flags().StringVar(&watchOutput, "output", "", "file receiving the simulation's stdout and stderr")
	cmd.Flags().DurationVar(&watchInterval, "interval", monitor.DefaultInterval, "refresh interval")
}

func loadWatchConfig(cmd *cobra.Command, needProcess bool) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	w := fileCfg.Watch
	applyStringConfig(cmd, "log", &watchLog, w.Log)
	applyStringConfig(cmd, "header", &watchHeader, w.Header)
	applyStringConfig(cmd, "group-column", &watchGroupColumn, w.GroupColumn)
	applyStringConfig(cmd, "timing-column", &watchTimingColumn, w.TimingColumn)
	applyStringConfig(cmd, "group-label", &watchGroupLabel, w.GroupLabel)
	applyStringConfig(cmd, "debug-log", &watchDebugLog, w.DebugLog)
	applyStringConfig(cmd, "executable", &watchExecutable, w.Executable)
	applyStringSliceConfig(cmd, "arg", &watchArgs, w.Args)
	applyStringConfig(cmd, "dir", &watchDir, w.Dir)
	applyStringConfig(cmd, "input", &watchInput, w.Input)
	applyStringConfig(cmd, "output", &watchOutput, w.Output)
	applyDurationConfig(cmd, "interval", &watchInterval, w.Interval)

	cfg := model.Config{
		LogPath:      watchLog,
		Executable:   watchExecutable,
		Args:         watchArgs,
		Dir:          watchDir,
		Input:        watchInput,
		OutputPath:   watchOutput,
		Interval:     watchInterval,
		Header:       watchHeader,
		GroupColumn:  watchGroupColumn,
		TimingColumn: watchTimingColumn,
		GroupLabel:   watchGroupLabel,
		DebugLogPath: watchDebugLog,
	}
	if err := validateConfig(cfg, needProcess); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func newReader(cfg model.Config, logger *slog.Logger) *csvlog.Reader {
	return csvlog.New(cfg.LogPath, csvlog.Options{
		Header:       cfg.Header,
		GroupColumn:  cfg.GroupColumn,
		TimingColumn: cfg.TimingColumn,
		Logger:       logger,
	})
}

func newController(cfg model.Config, reader *csvlog.Reader, logger *slog.Logger) *process.Controller {
	return process.New(process.Options{
		Spawner: &process.ExecSpawner{
			Path:   cfg.Executable,
			Args:   cfg.Args,
			Dir:    cfg.Dir,
			Input:  cfg.Input,
			Output: cfg.OutputPath,
		},
		Reset:  reader.Reset,
		Name:   filepath.Base(cfg.Executable),
		Logger: logger,
	})
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the simulation immediately and monitor it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if runPlain {
				return runPlainMonitor(cmd)
			}
			return runMonitor(cmd, true)
		},
	}
	addLogFlags(cmd)
	addProcessFlags(cmd)
	cmd.Flags().BoolVar(&runPlain, "plain", false, "print one summary line per refresh instead of the TUI")
	return cmd
}

func runMonitor(cmd *cobra.Command, autoStart bool) error {
	cfg, err := loadWatchConfig(cmd, true)
	if err != nil {
		return err
	}
	logger, closeLog, err := openDebugLog(cfg.DebugLogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	reader := newReader(cfg, logger)
	ctrl := newController(cfg, reader, logger)
	engine := monitor.NewEngine(reader, ctrl, logger)
	ui := tui.NewModel(tui.Options{
		Engine:     engine,
		Controller: ctrl,
		Label:      cfg.GroupLabel,
		Interval:   cfg.Interval,
		Logger:     logger,
		AutoStart:  autoStart,
	})
	program := tea.NewProgram(ui, tea.WithAltScreen())
	_, runErr := program.Run()
	if err := ctrl.Stop(context.Background()); err != nil {
		logErrf("failed to stop simulation: %v\n", err)
	}
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}

func runPlainMonitor(cmd *cobra.Command) error {
	cfg, err := loadWatchConfig(cmd, true)
	if err != nil {
		return err
	}
	logger, closeLog, err := openDebugLog(cfg.DebugLogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := newReader(cfg, logger)
	ctrl := newController(cfg, reader, logger)
	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := ctrl.Stop(context.Background()); err != nil {
			logErrf("failed to stop simulation: %v\n", err)
		}
	}()

	out := cmd.OutOrStdout()
	logErrln(ctrl.Status())
	sched := monitor.NewScheduler(monitor.NewEngine(reader, ctrl, logger), cfg.Interval)
	err = sched.Run(ctx, func(frame monitor.Frame) bool {
		if frame.Outcome == monitor.OutcomeRefreshed {
			snap := stats.Snapshot{
				Baseline: frame.Baseline,
				Groups:   frame.Groups,
				Records:  frame.Records,
				Rows:     frame.Rows,
			}
			if _, err := fmt.Fprintln(out, stats.SummaryLine(cfg.GroupLabel, snap)); err != nil {
				logErrf("failed to write output: %v\n", err)
			}
		}
		if frame.Exited {
			logErrln(ctrl.Status())
			return false
		}
		return true
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print per-group stats for the current log",
		Args:  cobra.NoArgs,
		RunE:  runSummaryCmd,
	}
	addLogFlags(cmd)
	cmd.Flags().BoolVar(&summaryBars, "bars", false, "also draw the bar panels")
	cmd.Flags().StringVar(&summaryDB, "db", "", "read the snapshot stored by export --db instead of the log")
	return cmd
}

func runSummaryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadWatchConfig(cmd, false)
	if err != nil {
		return err
	}
	var snap stats.Snapshot
	if summaryDB != "" {
		snap, err = loadStoredSnapshot(summaryDB)
	} else {
		snap, err = loadSnapshot(cfg)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, cfg.GroupLabel, snap); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !summaryBars || len(snap.Groups) == 0 {
		return nil
	}
	layout := render.NewLayout(cfg.GroupLabel, snap.Groups)
	layout.Apply(snap.Records)
	if _, err := fmt.Fprintln(out, layout.View(terminalWidth())); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func loadSnapshot(cfg model.Config) (stats.Snapshot, error) {
	samples, err := newReader(cfg, nil).Load()
	if err != nil {
		if errors.Is(err, csvlog.ErrNoData) || errors.Is(err, os.ErrNotExist) {
			return stats.Snapshot{}, nil
		}
		return stats.Snapshot{}, fmt.Errorf("failed to load %s: %w", cfg.LogPath, err)
	}
	snap, _ := stats.Build(samples)
	return snap, nil
}

func loadStoredSnapshot(path string) (stats.Snapshot, error) {
	st, err := store.Open(path)
	if err != nil {
		return stats.Snapshot{}, fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	meta, snap, err := st.LoadSnapshot(context.Background())
	if err != nil {
		if errors.Is(err, store.ErrNoSnapshot) {
			return stats.Snapshot{}, nil
		}
		return stats.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	logErrf("Snapshot of %s exported %s\n", meta.LogPath, meta.ExportedAt.Local().Format(time.DateTime))
	return snap, nil
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultBarsWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultBarsWidth
	}
	return width
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the current snapshot as a PNG chart or SQLite database",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	addLogFlags(cmd)
	cmd.Flags().StringVar(&exportPNG, "png", "", "write a bar chart to this PNG file")
	cmd.Flags().StringVar(&exportDB, "db", "", "replace the snapshot stored in this SQLite file")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	if exportPNG == "" && exportDB == "" {
		return fmt.Errorf("nothing to export: pass --png and/or --db")
	}
	cfg, err := loadWatchConfig(cmd, false)
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(cfg)
	if err != nil {
		return err
	}
	if len(snap.Groups) == 0 {
		return fmt.Errorf("no rows found in %s", cfg.LogPath)
	}

	if exportPNG != "" {
		if err := export.WritePNGFile(exportPNG, cfg.GroupLabel, snap); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
		logErrf("Wrote %s\n", exportPNG)
	}
	if exportDB != "" {
		st, err := store.Open(exportDB)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		meta := store.Meta{LogPath: cfg.LogPath, GroupLabel: cfg.GroupLabel, ExportedAt: time.Now()}
		if err := st.SaveSnapshot(context.Background(), meta, snap); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		logErrf("Wrote %s\n", exportDB)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func openDebugLog(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create debug log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open debug log: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close debug log: %v\n", cerr)
		}
	}, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyStringSliceConfig(cmd *cobra.Command, name string, target *[]string, value []string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]string(nil), value...)
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *config.Duration) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value.Duration
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# trafficwatch configuration
# Uncomment a value to enable it. CLI flags override config values.

[watch]
# log = %q             # Simulation log, truncated on every start
# executable = %q              # Simulation binary
# args = []                         # Arguments passed to the simulation
# dir = ""                          # Working directory of the simulation
# input = "4\n"                     # Text fed to the simulation's stdin
# output = ""                       # File receiving the simulation's output
# interval = %q                  # Refresh interval
# header = %q
# group-column = %q
# timing-column = %q
# group-label = %q
# debug-log = %q
`,
		defaultLogPath,
		defaultExecutable,
		monitor.DefaultInterval.String(),
		csvlog.DefaultHeader,
		csvlog.DefaultGroupColumn,
		csvlog.DefaultTimingColumn,
		defaultGroupLabel,
		config.DefaultDebugLogPath(),
	)
}

func validateConfig(cfg model.Config, needProcess bool) error {
	if strings.TrimSpace(cfg.LogPath) == "" {
		return fmt.Errorf("--log must not be empty")
	}
	if strings.TrimSpace(cfg.GroupColumn) == "" {
		return fmt.Errorf("--group-column must not be empty")
	}
	if strings.TrimSpace(cfg.TimingColumn) == "" {
		return fmt.Errorf("--timing-column must not be empty")
	}
	if !headerHasColumn(cfg.Header, "cycle") {
		return fmt.Errorf("--header must contain the %q column", "cycle")
	}
	if !headerHasColumn(cfg.Header, cfg.GroupColumn) {
		return fmt.Errorf("--header must contain the group column %q", cfg.GroupColumn)
	}
	if !headerHasColumn(cfg.Header, cfg.TimingColumn) {
		return fmt.Errorf("--header must contain the timing column %q", cfg.TimingColumn)
	}
	if !needProcess {
		return nil
	}
	if strings.TrimSpace(cfg.Executable) == "" {
		return fmt.Errorf("--executable must not be empty")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("--interval must be > 0")
	}
	return nil
}

func headerHasColumn(header, column string) bool {
	for _, name := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(name), column) {
			return true
		}
	}
	return false
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
