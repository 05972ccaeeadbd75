package sheet

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
	"github.com/xuri/excelize/v2"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	start := time.Date(2022, 2, 3, 10, 11, 12, 345678000, time.UTC)
	rec := models.FileRecord{
		FilePath:          "/exp/10x_1,5mbar_sola80_001.nd2",
		FileName:          "10x_1,5mbar_sola80_001.nd2",
		ParentFolder:      "exp",
		AvgExposureTimeMs: models.Some(12.34),
		Pressure:          models.Some("1,5"),
		Mag:               models.Some("10x"),
		FileNbr:           models.Some("001"),
		LightSource:       models.Some("sola"),
		FrameRate:         models.Some(9.88),
		NFrames:           models.Some(100),
		TimeStart:         models.Some(start),
		XUmFrame0:         models.Some(-1234.5678901234),
		TMs:               []float64{0, 101.2, 202.4},
		Order:             models.Some(1),
		CropArea:          models.Some("none"),
		Extra:             map[string]string{"group": "", "comment": "bubbles"},
	}
	c := &models.Catalog{
		Columns: []string{"group", "file_nbr", "mag", "p", "comment", "frame_rate", "n_frames",
			"time_start", "avg_exposure_time_ms", "file_name", "file_path", "parent_folder",
			"x_um_frame0", "y_um_frame0", "order", "crop_area", "light_source", "t_ms"},
		Records: []models.FileRecord{rec},
	}

	path := filepath.Join(t.TempDir(), "nd2_file_list_exp.xlsx")
	if err := Write(path, c); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(path, slog.Default())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(got.Records))
	}
	if len(got.Columns) != len(c.Columns) {
		t.Errorf("Expected %d columns, got %d", len(c.Columns), len(got.Columns))
	}

	r := got.Records[0]
	if r.FilePath != rec.FilePath || r.FileName != rec.FileName || r.ParentFolder != "exp" {
		t.Errorf("Identity mismatch: %+v", r)
	}
	if nbr, _ := r.FileNbr.Get(); nbr != "001" {
		t.Errorf("Expected file_nbr '001', got %q", nbr)
	}
	if p, _ := r.Pressure.Get(); p != "1,5" {
		t.Errorf("Expected pressure '1,5', got %q", p)
	}
	if fr, _ := r.FrameRate.Get(); fr != 9.88 {
		t.Errorf("Expected frame rate 9.88, got %v", fr)
	}
	if n, _ := r.NFrames.Get(); n != 100 {
		t.Errorf("Expected 100 frames, got %d", n)
	}
	if ts, _ := r.TimeStart.Get(); !ts.Equal(start) {
		t.Errorf("Expected time start %v, got %v", start, ts)
	}
	if x, _ := r.XUmFrame0.Get(); x != -1234.5678901234 {
		t.Errorf("Expected x_um_frame0 -1234.5678901234, got %v", x)
	}
	if r.YUmFrame0.IsSet() {
		t.Errorf("Expected y_um_frame0 to stay absent")
	}
	if len(r.TMs) != 3 || r.TMs[1] != 101.2 {
		t.Errorf("Unexpected t_ms: %v", r.TMs)
	}
	if ls, _ := r.LightSource.Get(); ls != "sola" {
		t.Errorf("Expected light source 'sola', got %q", ls)
	}
	if r.Extra["comment"] != "bubbles" {
		t.Errorf("Expected comment 'bubbles', got %q", r.Extra["comment"])
	}
	if v, ok := r.Extra["group"]; !ok || v != "" {
		t.Errorf("Expected blank group placeholder, got %q (present=%v)", v, ok)
	}
}

func TestExtractRecords_HandEdited(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"
	f.SetCellValue(sheetName, "A1", "file_nbr")
	f.SetCellValue(sheetName, "B1", "n_frames")
	f.SetCellValue(sheetName, "C1", "time_start")
	f.SetCellValue(sheetName, "D1", "Q_uL_per_min_mean")
	f.SetCellValue(sheetName, "E1", "n_frames")
	f.SetCellValue(sheetName, "F1", "frame_rate")

	f.SetCellValue(sheetName, "A2", "003")
	f.SetCellValue(sheetName, "B2", 250.0)
	f.SetCellValue(sheetName, "C2", 44595.5)
	f.SetCellValue(sheetName, "D2", 0.42)
	f.SetCellValue(sheetName, "E2", 7)
	f.SetCellValue(sheetName, "F2", "fast")
	// Row 3 is blank and must be skipped.
	f.SetCellValue(sheetName, "A4", "004")

	rows, header, err := ExtractRecords(f, sheetName, slog.Default())
	if err != nil {
		t.Fatalf("ExtractRecords failed: %v", err)
	}
	if len(header) != 6 {
		t.Errorf("Expected 6 header cells, got %d", len(header))
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	r := rows[0]
	if n, _ := r.NFrames.Get(); n != 250 {
		t.Errorf("Expected the first n_frames column (250), got %d", n)
	}
	want := time.Date(2022, 2, 3, 12, 0, 0, 0, time.UTC)
	if ts, _ := r.TimeStart.Get(); !ts.Equal(want) {
		t.Errorf("Expected %v from the serial date, got %v", want, ts)
	}
	if r.Extra["Q_uL_per_min_mean"] != "0.42" {
		t.Errorf("Expected extra column value '0.42', got %q", r.Extra["Q_uL_per_min_mean"])
	}
	if r.FrameRate.IsSet() {
		t.Errorf("Expected the unparsable frame rate to be absent")
	}
	if nbr, _ := rows[1].FileNbr.Get(); nbr != "004" {
		t.Errorf("Expected file_nbr '004', got %q", nbr)
	}
}

func TestInferSchema(t *testing.T) {
	tests := []struct {
		header   []string
		expected models.Schema
	}{
		{[]string{"group", "exp_ID", "mask_file_nbr"}, models.SchemaWaves},
		{[]string{"device_type", "pos", "Q_uL_per_h"}, models.SchemaDLD},
		{[]string{"comment", "frame_rate"}, models.SchemaPlain},
	}

	for _, tt := range tests {
		if got := InferSchema(tt.header); got != tt.expected {
			t.Errorf("InferSchema(%v) = %q, expected %q", tt.header, got, tt.expected)
		}
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"12", 12, true},
		{"12.0", 12, true},
		{"12.5", 0, false},
		{"x", 0, false},
	}

	for _, tt := range tests {
		got, err := parseInt(tt.input)
		if (err == nil) != tt.ok || got != tt.expected {
			t.Errorf("parseInt(%q) = %d, %v; expected %d (ok=%v)", tt.input, got, err, tt.expected, tt.ok)
		}
	}
}
