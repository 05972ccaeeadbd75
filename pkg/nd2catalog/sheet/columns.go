// Package sheet reads and writes experiment catalogs as xlsx workbooks.
package sheet

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
	"github.com/xuri/excelize/v2"
)

// TimeLayout is the layout of the time_start column.
const TimeLayout = time.RFC3339Nano

// column binds a catalog column name to a FileRecord field.
type column struct {
	// get returns the cell value and whether the field is present.
	get func(r *models.FileRecord) (interface{}, bool)
	// set parses a non-empty cell value into the field.
	set func(r *models.FileRecord, raw string) error
}

var columns = map[string]column{
	"file_path":     identityCol(func(r *models.FileRecord) *string { return &r.FilePath }),
	"file_name":     identityCol(func(r *models.FileRecord) *string { return &r.FileName }),
	"parent_folder": identityCol(func(r *models.FileRecord) *string { return &r.ParentFolder }),

	"avg_exposure_time_ms": floatCol(func(r *models.FileRecord) *models.Opt[float64] { return &r.AvgExposureTimeMs }),

	"p":                      stringCol(func(r *models.FileRecord) *models.Opt[string] { return &r.Pressure }),
	"mag":                    stringCol(func(r *models.FileRecord) *models.Opt[string] { return &r.Mag }),
	"file_nbr":               stringCol(func(r *models.FileRecord) *models.Opt[string] { return &r.FileNbr }),
	"light_source":           stringCol(func(r *models.FileRecord) *models.Opt[string] { return &r.LightSource }),
	"light_source_intensity": floatCol(func(r *models.FileRecord) *models.Opt[float64] { return &r.LightSourceIntensity }),
	"DNA_conc_ngul":          floatCol(func(r *models.FileRecord) *models.Opt[float64] { return &r.DNAConcNgul }),

	"frame_rate":  floatCol(func(r *models.FileRecord) *models.Opt[float64] { return &r.FrameRate }),
	"bit_depth":   intCol(func(r *models.FileRecord) *models.Opt[int] { return &r.BitDepth }),
	"width":       intCol(func(r *models.FileRecord) *models.Opt[int] { return &r.Width }),
	"height":      intCol(func(r *models.FileRecord) *models.Opt[int] { return &r.Height }),
	"n_frames":    intCol(func(r *models.FileRecord) *models.Opt[int] { return &r.NFrames }),
	"time_start":  timeCol(func(r *models.FileRecord) *models.Opt[time.Time] { return &r.TimeStart }),
	"time_s":      floatCol(func(r *models.FileRecord) *models.Opt[float64] { return &r.TimeS }),
	"x_um_frame0": floatCol(func(r *models.FileRecord) *models.Opt[float64] { return &r.XUmFrame0 }),
	"y_um_frame0": floatCol(func(r *models.FileRecord) *models.Opt[float64] { return &r.YUmFrame0 }),

	"t_ms": seqCol(func(r *models.FileRecord) *[]float64 { return &r.TMs }),
	"x":    seqCol(func(r *models.FileRecord) *[]float64 { return &r.X }),
	"y":    seqCol(func(r *models.FileRecord) *[]float64 { return &r.Y }),

	"mean val": floatCol(func(r *models.FileRecord) *models.Opt[float64] { return &r.MeanVal }),
	"std":      floatCol(func(r *models.FileRecord) *models.Opt[float64] { return &r.Std }),

	"exp_ID":           stringCol(func(r *models.FileRecord) *models.Opt[string] { return &r.ExpID }),
	"device_type":      stringCol(func(r *models.FileRecord) *models.Opt[string] { return &r.DeviceType }),
	"pos":              stringCol(func(r *models.FileRecord) *models.Opt[string] { return &r.Pos }),
	"order":            intCol(func(r *models.FileRecord) *models.Opt[int] { return &r.Order }),
	"frame_to_display": intCol(func(r *models.FileRecord) *models.Opt[int] { return &r.FrameToDisplay }),
	"crop_area":        stringCol(func(r *models.FileRecord) *models.Opt[string] { return &r.CropArea }),
}

func identityCol(field func(r *models.FileRecord) *string) column {
	return column{
		get: func(r *models.FileRecord) (interface{}, bool) {
			v := *field(r)
			return v, v != ""
		},
		set: func(r *models.FileRecord, raw string) error {
			*field(r) = raw
			return nil
		},
	}
}

func stringCol(field func(r *models.FileRecord) *models.Opt[string]) column {
	return column{
		get: func(r *models.FileRecord) (interface{}, bool) {
			return field(r).Get()
		},
		set: func(r *models.FileRecord, raw string) error {
			*field(r) = models.Some(raw)
			return nil
		},
	}
}

func floatCol(field func(r *models.FileRecord) *models.Opt[float64]) column {
	return column{
		get: func(r *models.FileRecord) (interface{}, bool) {
			v, ok := field(r).Get()
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, false
			}
			return v, true
		},
		set: func(r *models.FileRecord, raw string) error {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return err
			}
			*field(r) = models.Some(v)
			return nil
		},
	}
}

func intCol(field func(r *models.FileRecord) *models.Opt[int]) column {
	return column{
		get: func(r *models.FileRecord) (interface{}, bool) {
			return field(r).Get()
		},
		set: func(r *models.FileRecord, raw string) error {
			v, err := parseInt(raw)
			if err != nil {
				return err
			}
			*field(r) = models.Some(v)
			return nil
		},
	}
}

func timeCol(field func(r *models.FileRecord) *models.Opt[time.Time]) column {
	return column{
		get: func(r *models.FileRecord) (interface{}, bool) {
			v, ok := field(r).Get()
			if !ok {
				return nil, false
			}
			return v.Format(TimeLayout), true
		},
		set: func(r *models.FileRecord, raw string) error {
			v, err := parseTime(raw)
			if err != nil {
				return err
			}
			*field(r) = models.Some(v)
			return nil
		},
	}
}

func seqCol(field func(r *models.FileRecord) *[]float64) column {
	return column{
		get: func(r *models.FileRecord) (interface{}, bool) {
			v := *field(r)
			if v == nil {
				return nil, false
			}
			b, err := json.Marshal(v)
			if err != nil {
				return nil, false
			}
			return string(b), true
		},
		set: func(r *models.FileRecord, raw string) error {
			var v []float64
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return err
			}
			*field(r) = v
			return nil
		},
	}
}

// parseInt accepts integers and integral decimals such as "3.0", which
// spreadsheet applications produce when a column is re-saved.
func parseInt(s string) (int, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %s", s)
	}
	return int(f), nil
}

// parseTime accepts the layout written by this package, a plain
// "2006-01-02 15:04:05" timestamp, or an Excel date serial number.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05.999999999", "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("unrecognised time: %s", s)
}
