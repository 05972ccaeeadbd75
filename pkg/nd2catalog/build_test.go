package nd2catalog

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/reader"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/reader/readertest"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/registry"
	"github.com/xuri/excelize/v2"
)

var t0 = time.Date(2022, 2, 3, 10, 0, 0, 0, time.UTC)

type fixture struct {
	dir    string
	reader *readertest.Reader
	opts   Options
	log    *bytes.Buffer
}

// newFixture creates an experiment directory holding three ND2 files. The
// second one, recorded first, cannot be opened.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "2022-02-03_hex_posts")
	r := readertest.New()

	files := []struct {
		rel  string
		file *readertest.File
	}{
		{"10x_1,5mbar_sola80_001.nd2", readertest.Simple(9.876, 100, t0.Add(2*time.Minute))},
		{"10x_2mbar_sola80_002.nd2", &readertest.File{OpenErr: errors.New("corrupt file"), Exposure: []float64{5}}},
		{"sub/40x_3mbar_solis50%_003.nd2", readertest.Simple(20, 40, t0.Add(time.Minute))},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.rel)
		touch(t, path)
		r.Add(path, f.file)
	}
	touch(t, filepath.Join(dir, "notes.txt"))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	return &fixture{
		dir:    dir,
		reader: r,
		log:    &buf,
		opts: Options{
			Adapter: reader.NewAdapter(r, r, logger),
			Logger:  logger,
		},
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func TestCatalogFileName(t *testing.T) {
	if got := CatalogFileName("/data/2022-02-03_hex_posts/"); got != "nd2_file_list_2022-02-03_hex_posts.xlsx" {
		t.Errorf("Unexpected catalog name %q", got)
	}
}

func TestColumns(t *testing.T) {
	recs := []models.FileRecord{{Pressure: models.Some("100")}}

	tests := []struct {
		name     string
		schema   models.Schema
		records  []models.FileRecord
		fileInfo bool
		zProj    bool
		expected string
	}{
		{
			name:   "waves with file name info",
			schema: models.SchemaWaves, records: recs, fileInfo: true,
			expected: "group,exp_ID,device_type,file_nbr,mag,p,comment,frame_rate,time_s,n_frames,width,height,time_start,bit_depth,avg_exposure_time_ms,file_name,file_path,parent_folder,x_um_frame0,y_um_frame0,frame_to_display,crop_area,angle,order,mask_file_nbr,area_min_factor,factor_local_otsu,otsu_radius_mask_gen,dist_max",
		},
		{
			name:   "dld with z-projection",
			schema: models.SchemaDLD, zProj: true,
			expected: "device_type,pos,order,comment,frame_rate,time_s,n_frames,width,height,time_start,bit_depth,avg_exposure_time_ms,file_name,file_path,parent_folder,x_um_frame0,y_um_frame0,mean val,std,frame_to_display,crop_area,angle,x1,y1,crop_array_imageJ_bg_wall,Q_ng_per_h,sample_Q_uL_per_h,Q_uL_per_h,Q_uL_per_min,u_um_per_s",
		},
		{
			name:   "plain with parsed extras",
			schema: models.SchemaPlain,
			records: []models.FileRecord{{
				LightSource:          models.Some("sola"),
				LightSourceIntensity: models.Some(80.0),
				TMs:                  []float64{0},
			}},
			expected: "comment,frame_rate,time_s,n_frames,width,height,time_start,bit_depth,avg_exposure_time_ms,file_name,file_path,parent_folder,x_um_frame0,y_um_frame0,light_source,light_source_intensity,t_ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(Columns(tt.schema, tt.records, tt.fileInfo, tt.zProj), ",")
			if got != tt.expected {
				t.Errorf("Columns mismatch:\n got: %s\nwant: %s", got, tt.expected)
			}
		})
	}
}

func TestBuildCatalog_ReaderFailureKeepsBatch(t *testing.T) {
	fx := newFixture(t)

	c, path, err := BuildCatalog(fx.dir, fx.opts)
	if err != nil {
		t.Fatalf("BuildCatalog failed: %v", err)
	}
	if filepath.Base(path) != "nd2_file_list_2022-02-03_hex_posts.xlsx" {
		t.Errorf("Unexpected catalog path %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Catalog not written: %v", err)
	}
	if len(c.Records) != 3 {
		t.Fatalf("Expected a row for each of the 3 files, got %d", len(c.Records))
	}

	// Sorted by start time; the failing file has none and goes last.
	order := []string{"003", "001", "002"}
	for i, nbr := range order {
		if got, _ := c.Records[i].FileNbr.Get(); got != nbr {
			t.Errorf("Row %d: expected file %s, got %s", i, nbr, got)
		}
	}

	failed := c.Records[2]
	if failed.FrameRate.IsSet() || failed.NFrames.IsSet() || failed.TimeStart.IsSet() {
		t.Errorf("Expected technical fields absent on the failing row: %+v", failed)
	}
	if exp, _ := failed.AvgExposureTimeMs.Get(); exp != 5 {
		t.Errorf("Expected the exposure time of the failing row to survive, got %v", exp)
	}
	if mag, _ := failed.Mag.Get(); mag != "10x" {
		t.Errorf("Expected file name fields on the failing row, got mag %q", mag)
	}
	for _, rec := range c.Records[:2] {
		if !rec.FrameRate.IsSet() || !rec.NFrames.IsSet() {
			t.Errorf("Expected technical fields on %s", rec.FileName)
		}
	}

	for _, rec := range c.Records {
		if id, _ := rec.ExpID.Get(); id != "2022-02-03_hex_posts" {
			t.Errorf("Expected exp_ID from the directory, got %q", id)
		}
		if dt, _ := rec.DeviceType.Get(); dt != "H" {
			t.Errorf("Expected device type H, got %q", dt)
		}
		if o, _ := rec.Order.Get(); o != 1 {
			t.Errorf("Expected order 1, got %d", o)
		}
		if ca, _ := rec.CropArea.Get(); ca != "none" {
			t.Errorf("Expected crop area 'none', got %q", ca)
		}
		if _, ok := rec.Extra["mask_file_nbr"]; !ok {
			t.Errorf("Expected a blank mask_file_nbr placeholder")
		}
	}

	if !strings.Contains(fx.log.String(), "corrupt file") {
		t.Errorf("Expected the reader failure to be logged, got:\n%s", fx.log.String())
	}
}

func TestBuildCatalog_WorkbookLayout(t *testing.T) {
	fx := newFixture(t)
	fx.opts.Schema = models.SchemaDLD

	_, path, err := BuildCatalog(fx.dir, fx.opts)
	if err != nil {
		t.Fatalf("BuildCatalog failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open catalog: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header and 3 rows, got %d", len(rows))
	}
	header := rows[0]
	if header[0] != "device_type" || header[1] != "pos" || header[2] != "order" {
		t.Errorf("Unexpected leading columns: %v", header[:3])
	}
	if header[3] != "file_nbr" || header[4] != "mag" || header[5] != "p" {
		t.Errorf("Unexpected file name columns: %v", header[3:6])
	}
	if rows[1][0] != "DLD" {
		t.Errorf("Expected device type DLD, got %q", rows[1][0])
	}
	if rows[1][3] != "003" {
		t.Errorf("Expected file number '003' kept as text, got %q", rows[1][3])
	}
}

func TestBuildCatalog_Registry(t *testing.T) {
	fx := newFixture(t)
	reg, err := registry.Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	defer reg.Close()
	fx.opts.Registry = reg

	_, path, err := BuildCatalog(fx.dir, fx.opts)
	if err != nil {
		t.Fatalf("BuildCatalog failed: %v", err)
	}

	e, err := reg.Resolve("2022-02-03_hex_posts")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if e.CatalogPath != path || e.Files != 3 || e.DeviceType != "H" {
		t.Errorf("Unexpected registered experiment: %+v", e)
	}
}

func TestBuildCatalog_NoAdapter(t *testing.T) {
	if _, _, err := BuildCatalog(t.TempDir(), Options{}); err == nil {
		t.Error("Expected an error without a reader")
	}
}

func TestBuildAll(t *testing.T) {
	main := t.TempDir()
	r := readertest.New()
	for _, exp := range []string{"exp_a", "exp_b"} {
		path := filepath.Join(main, exp, "10x_100mbar_001.nd2")
		touch(t, path)
		r.Add(path, readertest.Simple(10, 5, t0))
	}
	touch(t, filepath.Join(main, "readme.txt"))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	paths, err := BuildAll(main, Options{Adapter: reader.NewAdapter(r, r, logger), Logger: logger})
	if err != nil {
		t.Fatalf("BuildAll failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("Expected 2 catalogs, got %v", paths)
	}
	if filepath.Base(paths[1]) != "nd2_file_list_exp_b.xlsx" {
		t.Errorf("Unexpected catalog %s", paths[1])
	}
}
