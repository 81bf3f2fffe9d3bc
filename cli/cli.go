package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/santiagomed/assetpipe/config"
	"github.com/santiagomed/assetpipe/core"
	"github.com/santiagomed/assetpipe/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	config   string
	root     string
	verbose  bool
	progress bool
}

var stepDescriptions = map[core.StepType]string{
	core.Clean:    "Remove previous asset and site output",
	core.CSS:      "Minify stylesheets into the asset tree",
	core.SCSS:     "Compile SCSS entry points into the asset tree",
	core.JS:       "Minify scripts into the asset tree",
	core.Fonts:    "Copy font files into the asset tree",
	core.Images:   "Copy images into the asset tree",
	core.Favicon:  "Copy the favicon into the static directory",
	core.Generate: "Run the site generator",
	core.HTML:     "Minify generated HTML in place",
	core.XML:      "Minify generated XML in place",
	core.Archive:  "Zip the generated site",
}

// NewRootCommand builds the assetpipe command tree. Running the root command
// without a subcommand performs the full build.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "assetpipe",
		Short:         "assetpipe builds the static assets of a generated site",
		Long:          `assetpipe cleans previous output, minifies and compiles stylesheets and scripts, copies fonts and images, runs the site generator and minifies its output.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, flags, nil, nil)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Path to configuration file (default <root>/"+config.FileName+")")
	pf.StringVarP(&flags.root, "root", "r", ".", "Project root directory")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&flags.progress, "progress", false, "Show a live progress view")

	rootCmd.AddCommand(&cobra.Command{
		Use:     "default",
		Aliases: []string{"all"},
		Short:   "Run the full build",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, flags, nil, nil)
		},
	})
	for _, t := range core.AllStepTypes() {
		rootCmd.AddCommand(newStepCmd(flags, t))
	}
	rootCmd.AddCommand(newInitCmd(flags), newGraphCmd(flags))

	return rootCmd
}

func newStepCmd(flags *rootFlags, t core.StepType) *cobra.Command {
	cmd := &cobra.Command{
		Use:   t.String(),
		Short: stepDescriptions[t],
		Args:  cobra.NoArgs,
	}
	if t == core.Generate {
		cmd.Aliases = []string{"hugo"}
	}

	var mutate func(*config.Config)
	switch t {
	case core.HTML, core.XML:
		mutate = func(cfg *config.Config) { cfg.PostProcess = true }
	case core.Archive:
		var output string
		cmd.Flags().StringVarP(&output, "output", "o", "", "Path of the zip file (overrides archive.path)")
		mutate = func(cfg *config.Config) {
			if output != "" {
				cfg.Archive.Path = output
			}
		}
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd, flags, []core.StepType{t}, mutate)
	}
	return cmd
}

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.FileName + " to the project root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.config
			if path == "" {
				path = filepath.Join(flags.root, config.FileName)
			}
			if err := config.WriteDefault(afero.NewOsFs(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", nameStyle.Render(path))
			return nil
		},
	}
}

func newGraphCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the build stages and their steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			g, err := core.NewDefaultGraph(cfg)
			if err != nil {
				return err
			}
			printGraph(cmd.OutOrStdout(), g)
			return nil
		},
	}
}

func printGraph(out io.Writer, g *core.Graph) {
	for _, stage := range g.Stages {
		names := make([]string, 0, len(stage.Steps))
		for _, step := range stage.Steps {
			name := step.Type().String()
			if g.IsOptional(step.Type()) {
				name += "?"
			}
			names = append(names, name)
		}
		fmt.Fprintf(out, "%-12s %s\n", stage.Name+":", strings.Join(names, ", "))
	}
}

func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags.root, flags.config)
	if err != nil {
		return nil, err
	}
	if flags.verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func runBuild(cmd *cobra.Command, flags *rootFlags, steps []core.StepType, mutate func(*config.Config)) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if mutate != nil {
		mutate(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log, closer, err := logger.New(loggerOptions(cfg, flags.progress, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer closer.Close()
	log.Debug(fmt.Sprintf("Loaded configuration for %s", cfg.Root))

	engine, err := NewEngine(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	var report *core.Report
	if flags.progress {
		report, err = runWithProgress(ctx, engine, steps, nil, log)
	} else {
		report, err = engine.Run(ctx, NewConsolePublisher(cmd.OutOrStdout()), steps...)
	}
	printSummary(cmd.OutOrStdout(), report, time.Since(start))
	return err
}

// loggerOptions keeps console logs off the terminal while the progress view
// owns it; a configured log file still receives them.
func loggerOptions(cfg *config.Config, progress bool, stderr io.Writer) logger.Options {
	opts := logger.Options{Verbose: cfg.Verbose, File: cfg.LogFile, Writer: stderr}
	if progress {
		opts.Writer = io.Discard
	}
	return opts
}

func printSummary(out io.Writer, report *core.Report, elapsed time.Duration) {
	if report == nil {
		return
	}
	var ran int
	for _, res := range report.Results {
		if res.Status != core.StatusSkipped {
			ran++
		}
	}
	failed, warnings := len(report.Failed()), len(report.Warnings())

	summary := fmt.Sprintf("%d steps in %s, %d warnings", ran, elapsed.Round(time.Millisecond), warnings)
	if failed > 0 {
		fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("Build failed: %d failed, %s", failed, summary)))
		return
	}
	fmt.Fprintln(out, okStyle.Render("Build finished: "+summary))
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, faintStyle.Render("Interrupted."))
		} else {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		}
		os.Exit(1)
	}
}
