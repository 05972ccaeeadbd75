package nd2catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/filename"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/registry"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/scan"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/sheet"
)

// CatalogPrefix starts the file name of every catalog workbook.
const CatalogPrefix = "nd2_file_list"

var (
	baseColumns = []string{
		"comment", "frame_rate", "time_s", "n_frames", "width", "height",
		"time_start", "bit_depth", "avg_exposure_time_ms", "file_name",
		"file_path", "parent_folder", "x_um_frame0", "y_um_frame0",
	}
	fileNameColumns    = []string{"file_nbr", "mag"}
	zProjectionColumns = []string{"mean val", "std"}

	wavesFirst = []string{"group", "exp_ID", "device_type"}
	wavesLast  = []string{
		"frame_to_display", "crop_area", "angle", "order", "mask_file_nbr",
		"area_min_factor", "factor_local_otsu", "otsu_radius_mask_gen", "dist_max",
	}
	wavesBlank = []string{
		"group", "mask_file_nbr", "comment", "angle", "area_min_factor",
		"factor_local_otsu", "otsu_radius_mask_gen", "dist_max",
	}

	dldFirst = []string{"device_type", "pos", "order"}
	dldLast  = []string{
		"frame_to_display", "crop_area", "angle", "x1", "y1",
		"crop_array_imageJ_bg_wall", "Q_ng_per_h", "sample_Q_uL_per_h",
		"Q_uL_per_h", "Q_uL_per_min", "u_um_per_s",
	}
	dldBlank = []string{
		"comment", "angle", "x1", "y1", "crop_array_imageJ_bg_wall",
		"Q_ng_per_h", "sample_Q_uL_per_h", "Q_uL_per_h", "Q_uL_per_min", "u_um_per_s",
	}
)

// CatalogFileName returns the workbook name of the catalog of dir.
func CatalogFileName(dir string) string {
	return CatalogPrefix + "_" + filepath.Base(filepath.Clean(dir)) + ".xlsx"
}

// Columns returns the column order of a catalog built from records.
//
// The schema columns wrap the metadata columns; "p" is added when any
// record carries a pressure, "file_nbr" and "mag" when the file names were
// parsed, "mean val" and "std" for z-projections. Parsed fields without a
// schema column are appended last.
func Columns(schema models.Schema, records []models.FileRecord, readFileNameInfo, zProjection bool) []string {
	var cols []string
	if readFileNameInfo {
		cols = append(cols, fileNameColumns...)
	}
	if anyRecord(records, func(r *models.FileRecord) bool { return r.Pressure.IsSet() }) {
		cols = append(cols, "p")
	}
	cols = append(cols, baseColumns...)
	if zProjection {
		cols = append(cols, zProjectionColumns...)
	}

	switch schema {
	case models.SchemaDLD:
		cols = concat(dldFirst, cols, dldLast)
	case models.SchemaPlain:
	default:
		cols = concat(wavesFirst, cols, wavesLast)
	}

	appendIf := func(name string, has func(r *models.FileRecord) bool) {
		if anyRecord(records, has) {
			cols = append(cols, name)
		}
	}
	appendIf("light_source", func(r *models.FileRecord) bool { return r.LightSource.IsSet() })
	appendIf("light_source_intensity", func(r *models.FileRecord) bool { return r.LightSourceIntensity.IsSet() })
	appendIf("DNA_conc_ngul", func(r *models.FileRecord) bool { return r.DNAConcNgul.IsSet() })
	appendIf("t_ms", func(r *models.FileRecord) bool { return r.TMs != nil })
	appendIf("x", func(r *models.FileRecord) bool { return r.X != nil })
	appendIf("y", func(r *models.FileRecord) bool { return r.Y != nil })
	return cols
}

// BuildCatalog extracts a record for every ND2 file under dir, writes the
// catalog to dir/CatalogFileName(dir) and returns it with the workbook
// path.
//
// Reader failures are logged and leave the affected fields of that row
// absent; they never abort the batch.
func BuildCatalog(dir string, opts Options) (*models.Catalog, string, error) {
	if opts.Adapter == nil {
		return nil, "", fmt.Errorf("no reader configured")
	}
	logger := opts.logger()
	schema := opts.schema()
	tic := time.Now()

	logger.Info("building catalog", slog.String("dir", dir), slog.String("schema", string(schema)))

	files, err := scan.ListND2(dir)
	if err != nil {
		return nil, "", fmt.Errorf("scan %s: %w", dir, err)
	}

	defaults := schemaDefaults(dir, schema)
	records := make([]models.FileRecord, 0, len(files))
	for i, path := range files {
		rec, err := opts.Adapter.Info(path, opts.readerOptions())
		if err != nil {
			logger.Error("skipping metadata of file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			rec = models.FileRecord{
				FilePath:     path,
				FileName:     filepath.Base(path),
				ParentFolder: filepath.Base(filepath.Dir(path)),
			}
		}

		if opts.ZProjection {
			z, err := opts.Adapter.ZProjection(path)
			if err != nil {
				logger.Error("z-projection failed",
					slog.String("path", path),
					slog.String("error", err.Error()))
			} else {
				rec.Overlay(z)
			}
		}

		defaults(&rec)
		records = append(records, rec)

		logger.Info("file complete",
			slog.Int("file", i+1),
			slog.Int("total", len(files)),
			slog.String("file_name", filepath.Base(path)),
			slog.Float64("seconds", time.Since(tic).Seconds()))
	}

	c := &models.Catalog{
		Dir:     dir,
		Schema:  schema,
		Columns: Columns(schema, records, opts.ShouldReadFileNameInfo(), opts.ZProjection),
		Records: records,
	}
	c.SortByTimeStart()

	path := filepath.Join(dir, CatalogFileName(dir))
	if err := sheet.Write(path, c); err != nil {
		return nil, "", fmt.Errorf("write catalog: %w", err)
	}

	if opts.Registry != nil {
		if err := opts.Registry.Upsert(experimentOf(c, path)); err != nil {
			logger.Warn("could not register catalog",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}

	logger.Info("catalog written",
		slog.String("path", path),
		slog.Int("files", len(records)),
		slog.Float64("seconds", time.Since(tic).Seconds()))
	return c, path, nil
}

// BuildAll builds a catalog for every immediate subdirectory of mainDir
// and returns the written workbook paths. A failing subdirectory is logged
// and skipped.
func BuildAll(mainDir string, opts Options) ([]string, error) {
	entries, err := os.ReadDir(mainDir)
	if err != nil {
		return nil, err
	}

	logger := opts.logger()
	var paths []string
	var errs []error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(mainDir, e.Name())
		logger.Info("handling directory", slog.String("dir", e.Name()))
		_, path, err := BuildCatalog(dir, opts)
		if err != nil {
			logger.Error("could not build catalog",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return paths, nil
}

// schemaDefaults returns the function adding the placeholder and default
// columns of schema to a record of dir.
func schemaDefaults(dir string, schema models.Schema) func(*models.FileRecord) {
	switch schema {
	case models.SchemaDLD:
		return func(r *models.FileRecord) {
			setBlank(r, dldBlank)
			r.DeviceType = models.Some(filename.DeviceDLD)
			if pos := filename.Position(r.FileName); pos != "" {
				r.Pos = models.Some(pos)
			}
			setWorkflowDefaults(r)
		}
	case models.SchemaPlain:
		return func(r *models.FileRecord) {
			setBlank(r, []string{"comment"})
		}
	default:
		expID := filepath.Base(filepath.Clean(dir))
		deviceType := filename.DeviceTypeForDir(dir)
		return func(r *models.FileRecord) {
			setBlank(r, wavesBlank)
			r.ExpID = models.Some(expID)
			if deviceType != "" {
				r.DeviceType = models.Some(deviceType)
			}
			setWorkflowDefaults(r)
		}
	}
}

func setWorkflowDefaults(r *models.FileRecord) {
	r.Order = models.Some(1)
	r.FrameToDisplay = models.Some(0)
	r.CropArea = models.Some("none")
}

func setBlank(r *models.FileRecord, cols []string) {
	if r.Extra == nil {
		r.Extra = make(map[string]string, len(cols))
	}
	for _, col := range cols {
		r.Extra[col] = ""
	}
}

func experimentOf(c *models.Catalog, path string) registry.Experiment {
	dir := c.Dir
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	e := registry.Experiment{
		ExpID:       filepath.Base(filepath.Clean(c.Dir)),
		Dir:         dir,
		Schema:      c.Schema,
		CatalogPath: path,
		Files:       len(c.Records),
		BuiltAt:     time.Now(),
	}
	if len(c.Records) > 0 {
		e.DeviceType = c.Records[0].DeviceType.Or("")
	} else if c.Schema != models.SchemaDLD {
		e.DeviceType = filename.DeviceTypeForDir(c.Dir)
	}
	return e
}

func anyRecord(records []models.FileRecord, pred func(r *models.FileRecord) bool) bool {
	for i := range records {
		if pred(&records[i]) {
			return true
		}
	}
	return false
}

func concat(parts ...[]string) []string {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]string, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
