// Package models defines data structures for ND2 experiment catalogs.
package models

import "time"

// PressureNaN is the pressure recorded when a parsed file name carries no
// pressure token.
const PressureNaN = "NaN"

// FileRecord represents one row of an experiment catalog.
//
// FilePath and FileName are always present. Every other field is best
// effort and stays absent when extraction fails.
type FileRecord struct {
	// FilePath is the full path of the ND2 file.
	FilePath string `json:"file_path"`
	// FileName is the base name of the file, extension included.
	FileName string `json:"file_name"`
	// ParentFolder is the base name of the directory holding the file.
	ParentFolder string `json:"parent_folder"`

	// AvgExposureTimeMs is the mean camera exposure time in milliseconds.
	AvgExposureTimeMs Opt[float64] `json:"avg_exposure_time_ms"`

	// Pressure is the applied pressure in mbar as written in the file name.
	// It may contain a decimal comma.
	Pressure Opt[string] `json:"p"`
	// Mag is the objective magnification label, e.g. "100x".
	Mag Opt[string] `json:"mag"`
	// FileNbr is the trailing file number token, e.g. "001".
	FileNbr Opt[string] `json:"file_nbr"`
	// LightSource is "sola" or "solis".
	LightSource Opt[string] `json:"light_source"`
	// LightSourceIntensity is the lamp intensity in percent; -1 when the
	// token could not be parsed.
	LightSourceIntensity Opt[float64] `json:"light_source_intensity"`
	// DNAConcNgul is the DNA concentration in ng/uL.
	DNAConcNgul Opt[float64] `json:"DNA_conc_ngul"`

	FrameRate Opt[float64]   `json:"frame_rate"`
	BitDepth  Opt[int]       `json:"bit_depth"`
	Width     Opt[int]       `json:"width"`
	Height    Opt[int]       `json:"height"`
	NFrames   Opt[int]       `json:"n_frames"`
	TimeStart Opt[time.Time] `json:"time_start"`
	// TimeS is the recording duration in seconds.
	TimeS     Opt[float64] `json:"time_s"`
	XUmFrame0 Opt[float64] `json:"x_um_frame0"`
	YUmFrame0 Opt[float64] `json:"y_um_frame0"`

	// TMs holds per-frame timestamps in milliseconds when requested.
	TMs []float64 `json:"t_ms,omitempty"`
	// X and Y hold per-frame stage positions when requested.
	X []float64 `json:"x,omitempty"`
	Y []float64 `json:"y,omitempty"`

	// MeanVal and Std are pixel statistics over the whole stack.
	MeanVal Opt[float64] `json:"mean val"`
	Std     Opt[float64] `json:"std"`

	ExpID          Opt[string] `json:"exp_ID"`
	DeviceType     Opt[string] `json:"device_type"`
	Pos            Opt[string] `json:"pos"`
	Order          Opt[int]    `json:"order"`
	FrameToDisplay Opt[int]    `json:"frame_to_display"`
	CropArea       Opt[string] `json:"crop_area"`

	// Extra holds analysis-workflow columns filled in by downstream tools,
	// keyed by column name.
	Extra map[string]string `json:"extra,omitempty"`
}

// Shape returns the stack dimensions as (frames, height, width).
func (r *FileRecord) Shape() (frames, height, width int, ok bool) {
	n, okN := r.NFrames.Get()
	h, okH := r.Height.Get()
	w, okW := r.Width.Get()
	return n, h, w, okN && okH && okW
}

// Overlay copies every field set in src into r, replacing existing values.
// Identity fields are replaced when non-empty in src.
func (r *FileRecord) Overlay(src FileRecord) {
	r.merge(src, true)
}

// Fill copies the fields set in src that are still unset in r. It never
// overwrites, so applying it twice is the same as applying it once.
func (r *FileRecord) Fill(src FileRecord) {
	r.merge(src, false)
}

func (r *FileRecord) merge(src FileRecord, overwrite bool) {
	mergeString(&r.FilePath, src.FilePath, overwrite)
	mergeString(&r.FileName, src.FileName, overwrite)
	mergeString(&r.ParentFolder, src.ParentFolder, overwrite)

	mergeOpt(&r.AvgExposureTimeMs, src.AvgExposureTimeMs, overwrite)
	mergeOpt(&r.Pressure, src.Pressure, overwrite)
	mergeOpt(&r.Mag, src.Mag, overwrite)
	mergeOpt(&r.FileNbr, src.FileNbr, overwrite)
	mergeOpt(&r.LightSource, src.LightSource, overwrite)
	mergeOpt(&r.LightSourceIntensity, src.LightSourceIntensity, overwrite)
	mergeOpt(&r.DNAConcNgul, src.DNAConcNgul, overwrite)

	mergeOpt(&r.FrameRate, src.FrameRate, overwrite)
	mergeOpt(&r.BitDepth, src.BitDepth, overwrite)
	mergeOpt(&r.Width, src.Width, overwrite)
	mergeOpt(&r.Height, src.Height, overwrite)
	mergeOpt(&r.NFrames, src.NFrames, overwrite)
	mergeOpt(&r.TimeStart, src.TimeStart, overwrite)
	mergeOpt(&r.TimeS, src.TimeS, overwrite)
	mergeOpt(&r.XUmFrame0, src.XUmFrame0, overwrite)
	mergeOpt(&r.YUmFrame0, src.YUmFrame0, overwrite)
	mergeSlice(&r.TMs, src.TMs, overwrite)
	mergeSlice(&r.X, src.X, overwrite)
	mergeSlice(&r.Y, src.Y, overwrite)

	mergeOpt(&r.MeanVal, src.MeanVal, overwrite)
	mergeOpt(&r.Std, src.Std, overwrite)

	mergeOpt(&r.ExpID, src.ExpID, overwrite)
	mergeOpt(&r.DeviceType, src.DeviceType, overwrite)
	mergeOpt(&r.Pos, src.Pos, overwrite)
	mergeOpt(&r.Order, src.Order, overwrite)
	mergeOpt(&r.FrameToDisplay, src.FrameToDisplay, overwrite)
	mergeOpt(&r.CropArea, src.CropArea, overwrite)

	for k, v := range src.Extra {
		if r.Extra == nil {
			r.Extra = make(map[string]string, len(src.Extra))
		}
		if _, exists := r.Extra[k]; exists && !overwrite {
			continue
		}
		r.Extra[k] = v
	}
}

func mergeString(dst *string, src string, overwrite bool) {
	if src == "" {
		return
	}
	if *dst != "" && !overwrite {
		return
	}
	*dst = src
}
