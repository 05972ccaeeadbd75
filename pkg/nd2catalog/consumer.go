package nd2catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/registry"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/sheet"
)

// FindCatalog returns the path of the catalog workbook in dir: the first
// ".xlsx" file, in name order, whose name contains CatalogPrefix.
// Spreadsheet lock files ("~$...") are ignored.
func FindCatalog(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") {
			continue
		}
		if strings.HasSuffix(name, ".xlsx") && strings.Contains(name, CatalogPrefix) {
			return filepath.Join(dir, name), nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrCatalogNotFound, dir)
}

// LoadCatalog reads the catalog of dir, building it first when dir has
// none.
func LoadCatalog(dir string, opts Options) (*models.Catalog, error) {
	logger := opts.logger()

	path, err := FindCatalog(dir)
	if errors.Is(err, ErrCatalogNotFound) {
		logger.Info("could not find the catalog, creating it", slog.String("dir", dir))
		_, path, err = BuildCatalog(dir, opts)
	}
	if err != nil {
		return nil, err
	}

	c, err := sheet.Read(path, logger)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c.Dir = dir
	logger.Debug("found catalog", slog.String("file", filepath.Base(path)))
	return c, nil
}

// GetVideo returns the handle of file number fileNbr of the catalog of
// dir. The handle is populated from the catalog row; with Reread the file
// is read again and the row only fills the fields the reader missed.
//
// It returns a *NotFoundError when no row has the file number.
func GetVideo(dir, fileNbr string, opts Options, vopts VideoOptions) (*models.Video, error) {
	c, err := LoadCatalog(dir, opts)
	if err != nil {
		return nil, err
	}

	rows := c.FindByFileNbr(fileNbr)
	if len(rows) == 0 {
		return nil, &NotFoundError{Key: fileNbr, Dir: dir}
	}
	row := rows[0]
	row.FrameToDisplay = frameToDisplay(row.FrameToDisplay, vopts.FrameRange)

	var v *models.Video
	if vopts.Reread {
		v, err = extractVideo(row.FilePath, opts)
		if err != nil {
			return nil, err
		}
		v.FillFrom(row)
	} else {
		v = models.NewVideoFromRecord(row, vopts.cameraPixelSizeUm())
	}
	return finishVideo(v, opts, vopts)
}

// GetVideoByExperiment resolves expID to its directory through the
// registry and calls GetVideo. An unknown experiment returns a
// *NotFoundError.
func GetVideoByExperiment(reg *registry.Registry, expID, fileNbr string, opts Options, vopts VideoOptions) (*models.Video, error) {
	e, err := reg.Resolve(expID)
	if errors.Is(err, registry.ErrUnknownExperiment) {
		return nil, &NotFoundError{Key: expID, Dir: "experiment registry"}
	}
	if err != nil {
		return nil, err
	}

	if opts.Schema == "" {
		opts.Schema = e.Schema
	}
	if vopts.ExpDir == "" {
		vopts.ExpDir = e.Dir
	}
	return GetVideo(e.Dir, fileNbr, opts, vopts)
}

// OpenVideo extracts the metadata of the file at path and returns its
// handle, bypassing any catalog.
func OpenVideo(path string, opts Options, vopts VideoOptions) (*models.Video, error) {
	v, err := extractVideo(path, opts)
	if err != nil {
		return nil, err
	}
	return finishVideo(v, opts, vopts)
}

func extractVideo(path string, opts Options) (*models.Video, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("no reader configured")
	}
	rec, err := opts.Adapter.Info(path, opts.readerOptions())
	if err != nil {
		return nil, err
	}
	v := models.NewVideo(path, models.DefaultCameraPixelSizeUm)
	v.FillFrom(rec)
	return v, nil
}

func finishVideo(v *models.Video, opts Options, vopts VideoOptions) (*models.Video, error) {
	v.CameraPixelSizeUm = vopts.cameraPixelSizeUm()
	if mag, ok := v.Mag.Get(); ok {
		if s, ok := models.ScalePixPerUm(mag, v.CameraPixelSizeUm); ok {
			v.ScalePixPerUm = models.Some(s)
		}
	}
	if p, ok := v.Pressure.Get(); ok {
		if v.PressureLabel == "" {
			v.PressureLabel = p
		}
		v.Pressure = models.Some(models.NormalizePressure(p))
	}
	if vopts.ExpDir != "" {
		v.ExpDir = vopts.ExpDir
	}

	if vopts.ReadImage {
		if opts.Adapter == nil {
			return nil, fmt.Errorf("no reader configured")
		}
		px, err := opts.Adapter.ReadStack(v.FilePath, vopts.FrameRange)
		if err != nil {
			return nil, err
		}
		v.Pixels = px
	}
	return v, nil
}

// frameToDisplay keeps the catalog display frame when it lies inside the
// requested frame range, and falls back to frame 0 otherwise.
func frameToDisplay(ftd models.Opt[int], r models.FrameRange) models.Opt[int] {
	n, ok := ftd.Get()
	if !ok || r.End == 0 || n < r.End {
		return ftd
	}
	return models.Some(0)
}
