package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/export"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/watch"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/workspace"
)

func (a *app) buildCmd() *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "build <dir>",
		Short: "Build the catalog of an experiment directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, closeFn, err := a.options(&flags)
			if err != nil {
				return err
			}
			defer closeFn()

			c, path, err := nd2catalog.BuildCatalog(args[0], opts)
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d files)\n", path, len(c.Records))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) buildAllCmd() *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "build-all <dir>",
		Short: "Build a catalog for every subdirectory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, closeFn, err := a.options(&flags)
			if err != nil {
				return err
			}
			defer closeFn()

			paths, err := nd2catalog.BuildAll(args[0], opts)
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// videoFlags select and load one video.
type videoFlags struct {
	expID      string
	reread     bool
	readImage  bool
	frameStart int
	frameEnd   int
}

func (f *videoFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.expID, "exp", "", "Look the experiment up in the registry instead of a directory")
	cmd.Flags().BoolVar(&f.reread, "reread", false, "Read the metadata from the file again")
	cmd.Flags().BoolVar(&f.readImage, "read-image", false, "Load the pixel data")
	cmd.Flags().IntVar(&f.frameStart, "frame-start", 0, "First frame to load")
	cmd.Flags().IntVar(&f.frameEnd, "frame-end", 0, "End of the frame range (0 loads every frame)")
}

// video resolves "<dir> <file_nbr>", or "<file_nbr>" with --exp.
func (a *app) video(f *videoFlags, args []string) (*models.Video, func(), error) {
	opts, closeFn, err := a.options(nil)
	if err != nil {
		return nil, nil, err
	}

	vopts := a.videoOptions()
	vopts.Reread = f.reread
	vopts.ReadImage = f.readImage
	vopts.FrameRange = models.FrameRange{Start: f.frameStart, End: f.frameEnd}

	var v *models.Video
	if f.expID != "" {
		if len(args) != 1 {
			closeFn()
			return nil, nil, fmt.Errorf("expected <file_nbr> with --exp")
		}
		reg, regErr := a.requireRegistry(opts)
		if regErr != nil {
			closeFn()
			return nil, nil, regErr
		}
		v, err = nd2catalog.GetVideoByExperiment(reg, f.expID, args[0], opts, vopts)
	} else {
		if len(args) != 2 {
			closeFn()
			return nil, nil, fmt.Errorf("expected <dir> <file_nbr>")
		}
		v, err = nd2catalog.GetVideo(args[0], args[1], opts, vopts)
	}
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return v, closeFn, nil
}

func (a *app) showCmd() *cobra.Command {
	var flags videoFlags
	cmd := &cobra.Command{
		Use:   "show [<dir>] <file_nbr>",
		Short: "Show the catalog entry of one file",
		Example: `  # Look up file 001 in a directory
  nd2catalog show /data/2022-02-03_hex_posts 001

  # Look up file 001 of a registered experiment
  nd2catalog show --exp 2022-02-03_hex_posts 001`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, closeFn, err := a.video(&flags, args)
			if err != nil {
				return err
			}
			defer closeFn()

			fmt.Fprintln(cmd.OutOrStdout(), v.String())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) provisionCmd() *cobra.Command {
	var (
		flags        videoFlags
		expDir       string
		polarization bool
		subtractBg   bool
	)
	cmd := &cobra.Command{
		Use:   "provision [<dir>] <file_nbr>",
		Short: "Create the analysis directories of one file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, closeFn, err := a.video(&flags, args)
			if err != nil {
				return err
			}
			defer closeFn()

			d, err := workspace.Provision(v, workspace.Options{
				ExpDir:             expDir,
				Polarization:       polarization,
				SubtractBackground: subtractBg,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.FileFolder)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&expDir, "exp-dir", "", "Experiment directory holding bg/ and figures_shared/")
	cmd.Flags().BoolVar(&polarization, "polarization", false, "Add the HSV image directory")
	cmd.Flags().BoolVar(&subtractBg, "subtract-bg", false, "Require the median background image")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir> <out.parquet>",
		Short: "Export a catalog to Parquet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, closeFn, err := a.options(nil)
			if err != nil {
				return err
			}
			defer closeFn()

			c, err := nd2catalog.LoadCatalog(args[0], opts)
			if err != nil {
				return err
			}
			expID := filepath.Base(filepath.Clean(args[0]))
			if err := export.WriteParquet(args[1], c, expID); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			a.logger.Info("exported catalog", slog.String("path", args[1]), slog.Int("rows", len(c.Records)))
			return nil
		},
	}
}

func (a *app) experimentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "experiments",
		Short: "List the registered experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, closeFn, err := a.options(nil)
			if err != nil {
				return err
			}
			defer closeFn()

			reg, err := a.requireRegistry(opts)
			if err != nil {
				return err
			}
			list, err := reg.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range list {
				fmt.Fprintf(out, "%s\t%s\t%s\t%d\t%s\t%s\n",
					e.ExpID, e.DeviceType, e.Schema, e.Files, e.BuiltAt.Format(time.DateTime), e.Dir)
			}
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	var (
		flags    buildFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Rebuild the catalog whenever ND2 files change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, closeFn, err := a.options(&flags)
			if err != nil {
				return err
			}
			defer closeFn()

			dir := args[0]
			return watch.Run(cmd.Context(), dir, debounce, func() error {
				_, _, err := nd2catalog.BuildCatalog(dir, opts)
				return err
			}, a.logger)
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a rebuild")
	return cmd
}
