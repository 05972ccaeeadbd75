package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOverlay_LaterSourceWins(t *testing.T) {
	rec := FileRecord{
		FilePath:          "/exp/a_001.nd2",
		FileName:          "a_001.nd2",
		AvgExposureTimeMs: Some(15.0),
	}
	fromName := FileRecord{
		Mag:       Some("10x"),
		FrameRate: Some(5.0),
	}
	technical := FileRecord{
		FrameRate: Some(9.88),
		NFrames:   Some(100),
	}

	rec.Overlay(fromName)
	rec.Overlay(technical)

	if fr, _ := rec.FrameRate.Get(); fr != 9.88 {
		t.Errorf("Expected technical frame rate 9.88, got %v", fr)
	}
	if mag, _ := rec.Mag.Get(); mag != "10x" {
		t.Errorf("Expected mag '10x', got %q", mag)
	}
	if exp, _ := rec.AvgExposureTimeMs.Get(); exp != 15.0 {
		t.Errorf("Expected exposure time kept, got %v", exp)
	}
	if rec.FileName != "a_001.nd2" {
		t.Errorf("Expected file name kept, got %q", rec.FileName)
	}
}

func TestFill_NeverOverwrites(t *testing.T) {
	rec := FileRecord{
		FilePath:  "/exp/a_001.nd2",
		FrameRate: Some(9.88),
		Extra:     map[string]string{"angle": "12"},
	}
	row := FileRecord{
		FilePath:  "/other/a_001.nd2",
		FrameRate: Some(1.0),
		NFrames:   Some(50),
		TMs:       []float64{0, 1},
		Extra:     map[string]string{"angle": "0", "comment": "ok"},
	}

	rec.Fill(row)
	once := rec
	once.Extra = map[string]string{"angle": rec.Extra["angle"], "comment": rec.Extra["comment"]}
	rec.Fill(row)

	if rec.FilePath != "/exp/a_001.nd2" {
		t.Errorf("Expected file path kept, got %q", rec.FilePath)
	}
	if fr, _ := rec.FrameRate.Get(); fr != 9.88 {
		t.Errorf("Expected frame rate kept, got %v", fr)
	}
	if n, _ := rec.NFrames.Get(); n != 50 {
		t.Errorf("Expected n_frames filled with 50, got %d", n)
	}
	if len(rec.TMs) != 2 {
		t.Errorf("Expected t_ms filled, got %v", rec.TMs)
	}
	if rec.Extra["angle"] != "12" || rec.Extra["comment"] != "ok" {
		t.Errorf("Unexpected extra columns: %v", rec.Extra)
	}
	if n1, _ := once.NFrames.Get(); n1 != 50 || rec.Extra["angle"] != once.Extra["angle"] {
		t.Errorf("Expected a second fill to change nothing")
	}
}

func TestShape(t *testing.T) {
	rec := FileRecord{NFrames: Some(10), Height: Some(2)}
	if _, _, _, ok := rec.Shape(); ok {
		t.Error("Expected shape to be incomplete without width")
	}
	rec.Width = Some(4)
	n, h, w, ok := rec.Shape()
	if !ok || n != 10 || h != 2 || w != 4 {
		t.Errorf("Expected (10, 2, 4), got (%d, %d, %d)", n, h, w)
	}
}

func TestOpt_JSON(t *testing.T) {
	rec := FileRecord{FileName: "a.nd2", Mag: Some("10x")}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got FileRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if mag, _ := got.Mag.Get(); mag != "10x" {
		t.Errorf("Expected mag '10x', got %q", mag)
	}
	if got.Pressure.IsSet() {
		t.Error("Expected null pressure to stay absent")
	}
}

func TestSortByTimeStart(t *testing.T) {
	t0 := time.Date(2022, 1, 1, 10, 0, 0, 0, time.UTC)
	c := &Catalog{Records: []FileRecord{
		{FileName: "late.nd2", TimeStart: Some(t0.Add(time.Hour))},
		{FileName: "unknown1.nd2"},
		{FileName: "early.nd2", TimeStart: Some(t0)},
		{FileName: "unknown2.nd2"},
	}}

	c.SortByTimeStart()

	expected := []string{"early.nd2", "late.nd2", "unknown1.nd2", "unknown2.nd2"}
	for i, name := range expected {
		if c.Records[i].FileName != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, c.Records[i].FileName)
		}
	}
}

func TestFindByFileNbr(t *testing.T) {
	c := &Catalog{Records: []FileRecord{
		{FileName: "a_001.nd2", FileNbr: Some("001")},
		{FileName: "a_002.nd2", FileNbr: Some("002")},
		{FileName: "b_001.nd2", FileNbr: Some("001")},
		{FileName: "c.nd2"},
	}}

	if got := c.FindByFileNbr("001"); len(got) != 2 {
		t.Errorf("Expected 2 matches, got %d", len(got))
	}
	if got := c.FindByFileNbr("1"); len(got) != 0 {
		t.Errorf("Expected no match for '1', got %d", len(got))
	}
}

func TestParseSchema(t *testing.T) {
	tests := []struct {
		input    string
		expected Schema
		wantErr  bool
	}{
		{"", SchemaWaves, false},
		{"waves", SchemaWaves, false},
		{"dld", SchemaDLD, false},
		{"plain", SchemaPlain, false},
		{"DLD", "", true},
	}

	for _, tt := range tests {
		got, err := ParseSchema(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSchema(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseSchema(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
