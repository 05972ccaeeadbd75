// Package main provides the CLI entry point for nd2catalog.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ukaji3/nd2catalog-go/internal/config"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/reader"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/registry"
)

const version = "0.1.0"

// app holds the state shared by the subcommands.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func main() {
	a := &app{}
	if err := fang.Execute(
		context.Background(),
		a.rootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nd2catalog",
		Short: "Catalog ND2 microscope recordings in spreadsheets",
		Long: `nd2catalog scans experiment directories for ND2 recordings, extracts their
metadata and the parameters encoded in the lab's file naming convention, and
writes one nd2_file_list_<dir>.xlsx catalog per experiment.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
			slog.SetDefault(a.logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", envOr("ND2CATALOG_CONFIG", "nd2catalog.yaml"), "Configuration file")

	cmd.AddCommand(
		a.buildCmd(),
		a.buildAllCmd(),
		a.showCmd(),
		a.provisionCmd(),
		a.exportCmd(),
		a.experimentsCmd(),
		a.watchCmd(),
	)
	return cmd
}

// buildFlags are the catalog options that can override the configuration.
type buildFlags struct {
	schema         string
	noFileNameInfo bool
	timeSteps      bool
	xyPos          bool
	zProjection    bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.schema, "schema", "", "Catalog layout: waves, dld, plain (default from config)")
	cmd.Flags().BoolVar(&f.noFileNameInfo, "no-file-name-info", false, "Do not parse the file names")
	cmd.Flags().BoolVar(&f.timeSteps, "time-steps", false, "Add the timestamp of every frame")
	cmd.Flags().BoolVar(&f.xyPos, "xy-pos", false, "Add the stage position of every frame")
	cmd.Flags().BoolVar(&f.zProjection, "z-projection", false, "Add the pixel mean and std of every file (slow)")
}

// options assembles the build options from the configuration and flags.
// The returned close function releases the registry.
func (a *app) options(f *buildFlags) (nd2catalog.Options, func(), error) {
	schemaName := a.cfg.Catalog.Schema
	if f != nil && f.schema != "" {
		schemaName = f.schema
	}
	schema, err := models.ParseSchema(schemaName)
	if err != nil {
		return nd2catalog.Options{}, nil, err
	}

	readFileNameInfo := a.cfg.Catalog.ReadFileNameInfo
	opts := nd2catalog.Options{
		Adapter: reader.NewAdapter(
			reader.ExecOpener{Command: a.cfg.Reader.Command},
			reader.ExecExposureReader{Command: a.cfg.Reader.Exposure()},
			a.logger,
		),
		Schema:           schema,
		ReadFileNameInfo: &readFileNameInfo,
		ReadTimeSteps:    a.cfg.Catalog.ReadTimeSteps,
		ReadXYPos:        a.cfg.Catalog.ReadXYPos,
		ZProjection:      a.cfg.Catalog.ZProjection,
		Logger:           a.logger,
	}
	if f != nil {
		if f.noFileNameInfo {
			readFileNameInfo = false
		}
		opts.ReadTimeSteps = opts.ReadTimeSteps || f.timeSteps
		opts.ReadXYPos = opts.ReadXYPos || f.xyPos
		opts.ZProjection = opts.ZProjection || f.zProjection
	}

	closeFn := func() {}
	if a.cfg.Registry.Path != "" {
		reg, err := registry.Open(a.cfg.Registry.Path)
		if err != nil {
			return nd2catalog.Options{}, nil, err
		}
		opts.Registry = reg
		closeFn = func() { reg.Close() }
	}
	return opts, closeFn, nil
}

func (a *app) videoOptions() nd2catalog.VideoOptions {
	return nd2catalog.VideoOptions{CameraPixelSizeUm: a.cfg.CameraPixelSizeUm}
}

func (a *app) requireRegistry(opts nd2catalog.Options) (*registry.Registry, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("no experiment registry configured (registry.path)")
	}
	return opts.Registry, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
