package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/oakwood-commons/vmscope/internal/config"
	"github.com/oakwood-commons/vmscope/pkg/logger"
	"github.com/oakwood-commons/vmscope/pkg/settings"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
	logFile    string
	noColor    bool
	extras     string
}

// NewRootCmd builds the vmscope command tree. Running it without a
// subcommand starts the interactive panel.
func NewRootCmd() *cobra.Command {
	params := settings.NewRun()
	flags := &rootFlags{}
	run := &runFlags{}

	root := &cobra.Command{
		Use:   settings.CliBinaryName,
		Short: "Inspect live view-model instances as a searchable tree",
		Long: strings.TrimSpace(`
vmscope projects a store of live view-model instances into an expandable,
searchable list of rows. The interactive panel runs against a simulated
store; dump prints the same rows once in a text format.

Search syntax is InstanceName.property.sub, case-insensitive. A single
segment matches instance names and ids by prefix. With more segments the
first one must equal the instance name or id.`),
		Example:       "\n  vmscope\n  vmscope --extras session.yaml --watch\n  vmscope dump --search CounterVM.count\n  vmscope dump --format markdown --expand-all\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd, flags, params)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPanel(cmd, run)
		},
	}
	root.Version = settings.VersionInformation.String()
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", config.DefaultPath(settings.CliBinaryName), "panel settings file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.StringVar(&flags.logFile, "log-file", "", "append logs to this file (the interactive panel logs nowhere otherwise)")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable color output")
	pf.StringVar(&flags.extras, "extras", "", "file (JSON, YAML or TOML) shown under the Extras root")

	bindRunFlags(root, run)
	root.AddCommand(newRunCmd(run), newDumpCmd(), newConfigCmd(), newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, flags *rootFlags, params *settings.Run) error {
	level, err := zapcore.ParseLevel(flags.logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	params.MinLogLevel = int8(level)
	params.LogFile = flags.logFile
	params.NoColor = flags.noColor
	params.Sources.SettingsPath = flags.configPath
	params.Sources.ExtrasPath = flags.extras

	opts := logger.Options{Level: params.MinLogLevel, Path: params.LogFile}
	if interactive(cmd) && params.LogFile == "" {
		// The panel owns the terminal.
		opts.Discard = true
	}
	lgr, err := logger.Setup(opts)
	if err != nil {
		return err
	}
	lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithLogger(ctx, lgr)
	ctx = settings.IntoContext(ctx, params)
	cmd.SetContext(ctx)
	return nil
}

func interactive(cmd *cobra.Command) bool {
	return cmd.Name() == "run" || cmd.Name() == settings.CliBinaryName
}

func paramsFrom(cmd *cobra.Command) *settings.Run {
	return settings.FromContextOrNew(cmd.Context())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print vmscope version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), settings.VersionInformation.String())
			return err
		},
	}
}

func writeString(w io.Writer, s string) error {
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}
