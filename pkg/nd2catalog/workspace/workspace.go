// Package workspace provisions the per-file staging directories used by the
// downstream analysis tools.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
)

// ErrBackgroundNotFound indicates an experiment without a median
// background image for the magnification of a file.
var ErrBackgroundNotFound = errors.New("background image not found")

// Options configures Provision.
type Options struct {
	// ExpDir is the experiment directory. If empty, the handle's ExpDir is
	// used; without one the experiment-level directories are skipped.
	ExpDir string
	// Polarization adds the HSV image directory.
	Polarization bool
	// SubtractBackground requires the median background image
	// <ExpDir>/bg/<mag>/MED*.tif.
	SubtractBackground bool
}

// Provision creates the staging directories of v under
// <file dir>/<file stem>/, records them on v and returns them. Existing
// directories are left untouched. The pressure part of the names comes
// from v.PressureLabel, falling back to v.Pressure.
func Provision(v *models.Video, opts Options) (*models.WorkDirs, error) {
	p := v.PressureLabel
	if p == "" {
		p = v.Pressure.Or(models.PressureNaN)
	}
	root := filepath.Join(v.Dir, v.Stem)

	d := &models.WorkDirs{
		FileFolder:     root,
		Pixelated:      filepath.Join(root, "pixelated_"+p+"mbar"),
		Kymographs:     filepath.Join(root, "kymographs"+p+"mbar"),
		PostsMaskedOut: filepath.Join(root, "img_posts_masked_out"+p+"mbar"),
		VideoFiles:     filepath.Join(root, "video_files_"+p+"mbar"),
		FFT2D:          filepath.Join(root, "2D_FFT"),
	}
	if opts.Polarization {
		d.HSV = filepath.Join(root, "hsv images"+p+"mbar")
	}

	expDir := opts.ExpDir
	if expDir == "" {
		expDir = v.ExpDir
	}
	if expDir != "" {
		if opts.SubtractBackground {
			bg, err := findBackground(expDir, v.Mag.Or(""))
			if err != nil {
				return nil, err
			}
			d.BackgroundFile = bg
		}
		d.BgSubtractedVid = filepath.Join(root, "bg_subtracted_vid_"+p+"mbar")
		d.FiguresShared = filepath.Join(expDir, "figures_shared")
	}

	for _, dir := range []string{
		d.FileFolder, d.Pixelated, d.Kymographs, d.HSV, d.PostsMaskedOut,
		d.VideoFiles, d.FFT2D, d.BgSubtractedVid, d.FiguresShared,
	} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	v.ExpDir = expDir
	v.Dirs = d
	return d, nil
}

// findBackground returns the first MED*.tif file of <expDir>/bg/<mag>.
func findBackground(expDir, mag string) (string, error) {
	dir := filepath.Join(expDir, "bg", mag)
	if mag == "" {
		return "", fmt.Errorf("%w: magnification unknown", ErrBackgroundNotFound)
	}
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "MED") && strings.HasSuffix(name, ".tif") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w in %s", ErrBackgroundNotFound, dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}
