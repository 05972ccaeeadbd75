package models

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Video is the in-memory handle of one ND2 file: its catalog metadata and,
// when loaded, its pixel data.
type Video struct {
	FileRecord

	// Dir is the directory holding the file.
	Dir string `json:"dir_file"`
	// Stem is the file name without extension.
	Stem string `json:"file_name0"`
	// CameraPixelSizeUm is the camera pixel pitch used for ScalePixPerUm.
	CameraPixelSizeUm float64 `json:"camera_pixel_size_um"`
	// ScalePixPerUm is derived from the magnification when known.
	ScalePixPerUm Opt[float64] `json:"scale_pix_per_um"`
	// PressureLabel is the pressure as written in the file name, before
	// normalization. Staging directory names use it.
	PressureLabel string `json:"-"`
	// ExpDir is the experiment directory the file belongs to, when known.
	ExpDir string `json:"dir_exp,omitempty"`
	// Dirs lists the provisioned analysis directories.
	Dirs *WorkDirs `json:"dirs,omitempty"`

	// Pixels is the loaded image stack; nil until read.
	Pixels *Stack `json:"-"`
}

// WorkDirs lists the staging directories provisioned for one file.
type WorkDirs struct {
	FileFolder      string `json:"dir_path_file_folder"`
	Pixelated       string `json:"dir_pixelated_files"`
	Kymographs      string `json:"dir_kymos"`
	HSV             string `json:"dir_hsv,omitempty"`
	PostsMaskedOut  string `json:"dir_img_no_posts"`
	VideoFiles      string `json:"dir_video_files"`
	FFT2D           string `json:"dir_2D_FFT"`
	BgSubtractedVid string `json:"dir_bg_subtracted_vid,omitempty"`
	FiguresShared   string `json:"figures_shared,omitempty"`
	BackgroundFile  string `json:"file_path_bg,omitempty"`
}

// NewVideo returns a handle carrying only the identity of the file at path.
func NewVideo(path string, cameraPixelSizeUm float64) *Video {
	name := filepath.Base(path)
	dir := filepath.Dir(path)
	return &Video{
		FileRecord: FileRecord{
			FilePath:     path,
			FileName:     name,
			ParentFolder: filepath.Base(dir),
		},
		Dir:               dir,
		Stem:              strings.TrimSuffix(name, filepath.Ext(name)),
		CameraPixelSizeUm: cameraPixelSizeUm,
	}
}

// NewVideoFromRecord returns a handle populated from an already extracted
// record, without reading the file.
func NewVideoFromRecord(rec FileRecord, cameraPixelSizeUm float64) *Video {
	v := NewVideo(rec.FilePath, cameraPixelSizeUm)
	v.FillFrom(rec)
	return v
}

// FillFrom copies the fields of rec that the handle does not have yet.
func (v *Video) FillFrom(rec FileRecord) {
	v.FileRecord.Fill(rec)
	if v.ScalePixPerUm.IsSet() {
		return
	}
	if mag, ok := v.Mag.Get(); ok {
		if s, ok := ScalePixPerUm(mag, v.CameraPixelSizeUm); ok {
			v.ScalePixPerUm = Some(s)
		}
	}
}

// String lists the attributes of the handle that are set.
func (v *Video) String() string {
	contains := "(empty)"
	if v.Pixels != nil {
		contains = fmt.Sprintf("(%d, %d, %d)", v.Pixels.Frames, v.Pixels.Height, v.Pixels.Width)
	}

	attrs := v.attributes()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Video" + contains + ":")
	for _, k := range keys {
		b.WriteString("\n\t- " + k + ": " + attrs[k])
	}
	return b.String()
}

func (v *Video) attributes() map[string]string {
	m := map[string]string{
		"file_path":     v.FilePath,
		"file_name":     v.FileName,
		"parent_folder": v.ParentFolder,
		"dir_file":      v.Dir,
		"file_name0":    v.Stem,
	}
	putOpt(m, "avg_exposure_time_ms", v.AvgExposureTimeMs)
	putOpt(m, "p", v.Pressure)
	putOpt(m, "mag", v.Mag)
	putOpt(m, "file_nbr", v.FileNbr)
	putOpt(m, "light_source", v.LightSource)
	putOpt(m, "light_source_intensity", v.LightSourceIntensity)
	putOpt(m, "DNA_conc_ngul", v.DNAConcNgul)
	putOpt(m, "frame_rate", v.FrameRate)
	putOpt(m, "bit_depth", v.BitDepth)
	putOpt(m, "width", v.Width)
	putOpt(m, "height", v.Height)
	putOpt(m, "n_frames", v.NFrames)
	putOpt(m, "time_start", v.TimeStart)
	putOpt(m, "time_s", v.TimeS)
	putOpt(m, "x_um_frame0", v.XUmFrame0)
	putOpt(m, "y_um_frame0", v.YUmFrame0)
	putOpt(m, "mean val", v.MeanVal)
	putOpt(m, "std", v.Std)
	putOpt(m, "exp_ID", v.ExpID)
	putOpt(m, "device_type", v.DeviceType)
	putOpt(m, "pos", v.Pos)
	putOpt(m, "order", v.Order)
	putOpt(m, "frame_to_display", v.FrameToDisplay)
	putOpt(m, "crop_area", v.CropArea)
	putOpt(m, "scale_pix_per_um", v.ScalePixPerUm)
	if v.ExpDir != "" {
		m["dir_exp"] = v.ExpDir
	}
	for k, val := range v.Extra {
		if strings.TrimSpace(val) != "" {
			m[k] = val
		}
	}
	return m
}

func putOpt[T any](m map[string]string, key string, o Opt[T]) {
	if val, ok := o.Get(); ok {
		m[key] = fmt.Sprint(val)
	}
}
