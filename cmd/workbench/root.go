package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	workbench "github.com/llcc/org-workbench"
	"github.com/llcc/org-workbench/pkg/adapters/outline"
	"github.com/llcc/org-workbench/pkg/core"
)

// cli carries what every command needs: resolved configuration, the
// logger and, once opened, the store.
type cli struct {
	v        *viper.Viper
	logger   *slog.Logger
	logOut   io.Closer
	rootFlag bool

	svc  *core.Service
	repo core.Repository
	host *outline.Host
}

// app is the state shared by every command for one run.
var app = &cli{}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "workbench",
	Short: "Collect outline headings into ordered, syncable workbenches",
	Long: `workbench keeps named collections of cards taken from Org-mode and
Markdown headings. Cards can be reordered, removed and re-synced from their
source heading through a stable identifier.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		app.reset(cmd)
		if err := app.loadConfig(cmd); err != nil {
			return err
		}
		app.setupLogger(cmd)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		app.close()
	},
}

// boundFlags are the persistent flags viper layers config and env under.
var boundFlags = []string{"workbench", "snapshot", "root", "verbose", "log-file", "read-only", "include"}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fatal("workbench", err)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workbench", "w", "", "Workbench to operate on (default: the current one)")
	flags.String("snapshot", "", "Snapshot file (default: {root}/.workbench/workbenches.json)")
	flags.String("root", "", "Directory holding the outline documents (default: nearest .workbench upwards, else cwd)")
	flags.String("config", "", "Config file (default: workbench.yaml in the root)")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.String("log-file", "", "Write logs to a rotating file instead of stderr")
	flags.Bool("read-only", false, "Never write the snapshot or the documents")
	flags.StringSlice("include", nil, "Globs (relative to root) searched when resolving identifiers")
}

// reset starts a run with fresh configuration bound to cmd's flags.
func (c *cli) reset(cmd *cobra.Command) {
	*c = cli{v: viper.New(), rootFlag: cmd.Flags().Changed("root")}
	for _, name := range boundFlags {
		_ = c.v.BindPFlag(name, cmd.Flags().Lookup(name))
	}
}

// loadConfig layers workbench.yaml and WORKBENCH_* variables under the flags.
func (c *cli) loadConfig(cmd *cobra.Command) error {
	c.v.SetEnvPrefix("WORKBENCH")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	c.v.SetDefault("debounce", outline.DefaultDebounce)

	if file, _ := cmd.Flags().GetString("config"); file != "" {
		c.v.SetConfigFile(file)
	} else {
		c.v.SetConfigName("workbench")
		c.v.SetConfigType("yaml")
		if root := c.v.GetString("root"); root != "" {
			c.v.AddConfigPath(root)
		}
		if cwd, err := os.Getwd(); err == nil {
			if found, err := workbench.FindRoot(cwd); err == nil {
				c.v.AddConfigPath(found)
			}
			c.v.AddConfigPath(cwd)
		}
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func (c *cli) setupLogger(cmd *cobra.Command) {
	level := slog.LevelInfo
	if c.v.GetBool("verbose") {
		level = slog.LevelDebug
	}

	var out io.Writer = cmd.ErrOrStderr()
	if file := c.v.GetString("log-file"); file != "" {
		lj := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		out = lj
		c.logOut = lj
	}

	c.logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.logger)
}

// root resolves the document root: flag or config, else the nearest
// directory with a .workbench marker, else the working directory.
func (c *cli) root() (string, error) {
	if root := c.v.GetString("root"); root != "" {
		// a relative root in workbench.yaml is relative to that file
		if !filepath.IsAbs(root) && !c.rootFlag && c.v.InConfig("root") {
			if _, env := os.LookupEnv("WORKBENCH_ROOT"); !env {
				root = filepath.Join(filepath.Dir(c.v.ConfigFileUsed()), root)
			}
		}
		return filepath.Abs(root)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get CWD: %w", err)
	}
	if found, err := workbench.FindRoot(cwd); err == nil {
		return found, nil
	}
	return cwd, nil
}

func (c *cli) snapshotPath(root string) string {
	if path := c.v.GetString("snapshot"); path != "" {
		return path
	}
	return workbench.SnapshotPath(root)
}

func (c *cli) options(root string) []workbench.Option {
	opts := []workbench.Option{
		workbench.WithLogger(c.logger),
		workbench.WithRoot(root),
		workbench.WithReadOnly(c.v.GetBool("read-only")),
	}
	if include := c.v.GetStringSlice("include"); len(include) > 0 {
		opts = append(opts, workbench.WithInclude(include...))
	}
	return opts
}

// open wires the store for the resolved root.
func (c *cli) open() (*core.Service, error) {
	if c.svc != nil {
		return c.svc, nil
	}

	root, err := c.root()
	if err != nil {
		return nil, err
	}
	snapshot := c.snapshotPath(root)
	opts := c.options(root)

	repo, err := workbench.Init(snapshot, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", snapshot, err)
	}
	host := workbench.NewHost(opts...)

	svc, err := workbench.New(snapshot, append(opts, workbench.WithRepository(repo), workbench.WithHost(host))...)
	if err != nil {
		return nil, err
	}

	c.svc, c.repo, c.host = svc, repo, host
	c.logger.Debug("store opened", "root", root, "snapshot", snapshot)
	return svc, nil
}

// target is the workbench named by args[0], the --workbench flag or the
// current one, in that order.
func (c *cli) target(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	if name := c.v.GetString("workbench"); name != "" {
		return name
	}
	return c.svc.Current()
}

func (c *cli) debounce() time.Duration {
	return c.v.GetDuration("debounce")
}

func (c *cli) close() {
	if c.host != nil {
		if err := c.host.Close(); err != nil {
			c.logger.Warn("failed to save identifier index", "error", err)
		}
	}
	if c.logOut != nil {
		_ = c.logOut.Close()
	}
}
