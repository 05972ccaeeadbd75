// Package export writes experiment catalogs to columnar files.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
)

// Row is the Parquet layout of one catalog record. Absent fields are null.
type Row struct {
	ExpID        string `parquet:"exp_id"`
	FilePath     string `parquet:"file_path"`
	FileName     string `parquet:"file_name"`
	ParentFolder string `parquet:"parent_folder"`

	AvgExposureTimeMs    *float64 `parquet:"avg_exposure_time_ms,optional"`
	Pressure             *string  `parquet:"p,optional"`
	Mag                  *string  `parquet:"mag,optional"`
	FileNbr              *string  `parquet:"file_nbr,optional"`
	LightSource          *string  `parquet:"light_source,optional"`
	LightSourceIntensity *float64 `parquet:"light_source_intensity,optional"`
	DNAConcNgul          *float64 `parquet:"dna_conc_ngul,optional"`

	FrameRate *float64   `parquet:"frame_rate,optional"`
	BitDepth  *int64     `parquet:"bit_depth,optional"`
	Width     *int64     `parquet:"width,optional"`
	Height    *int64     `parquet:"height,optional"`
	NFrames   *int64     `parquet:"n_frames,optional"`
	TimeStart *time.Time `parquet:"time_start,optional"`
	TimeS     *float64   `parquet:"time_s,optional"`
	XUmFrame0 *float64   `parquet:"x_um_frame0,optional"`
	YUmFrame0 *float64   `parquet:"y_um_frame0,optional"`

	TMs []float64 `parquet:"t_ms"`
	X   []float64 `parquet:"x"`
	Y   []float64 `parquet:"y"`

	MeanVal *float64 `parquet:"mean_val,optional"`
	Std     *float64 `parquet:"std,optional"`

	DeviceType     *string `parquet:"device_type,optional"`
	Pos            *string `parquet:"pos,optional"`
	Order          *int64  `parquet:"order,optional"`
	FrameToDisplay *int64  `parquet:"frame_to_display,optional"`
	CropArea       *string `parquet:"crop_area,optional"`
}

// Rows converts the records of c. Every row carries the experiment ID of
// its record, or expID when the record has none.
func Rows(c *models.Catalog, expID string) []Row {
	rows := make([]Row, len(c.Records))
	for i := range c.Records {
		r := &c.Records[i]
		rows[i] = Row{
			ExpID:        r.ExpID.Or(expID),
			FilePath:     r.FilePath,
			FileName:     r.FileName,
			ParentFolder: r.ParentFolder,

			AvgExposureTimeMs:    ptr(r.AvgExposureTimeMs),
			Pressure:             ptr(r.Pressure),
			Mag:                  ptr(r.Mag),
			FileNbr:              ptr(r.FileNbr),
			LightSource:          ptr(r.LightSource),
			LightSourceIntensity: ptr(r.LightSourceIntensity),
			DNAConcNgul:          ptr(r.DNAConcNgul),

			FrameRate: ptr(r.FrameRate),
			BitDepth:  intPtr(r.BitDepth),
			Width:     intPtr(r.Width),
			Height:    intPtr(r.Height),
			NFrames:   intPtr(r.NFrames),
			TimeStart: ptr(r.TimeStart),
			TimeS:     ptr(r.TimeS),
			XUmFrame0: ptr(r.XUmFrame0),
			YUmFrame0: ptr(r.YUmFrame0),

			TMs: r.TMs,
			X:   r.X,
			Y:   r.Y,

			MeanVal: ptr(r.MeanVal),
			Std:     ptr(r.Std),

			DeviceType:     ptr(r.DeviceType),
			Pos:            ptr(r.Pos),
			Order:          intPtr(r.Order),
			FrameToDisplay: intPtr(r.FrameToDisplay),
			CropArea:       ptr(r.CropArea),
		}
	}
	return rows
}

// WriteParquet writes one row per record of c to path.
func WriteParquet(path string, c *models.Catalog, expID string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[Row](f)
	if _, err := w.Write(Rows(c, expID)); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return f.Close()
}

// ReadParquet reads the rows written by WriteParquet.
func ReadParquet(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	out := make([]Row, 0, pf.NumRows())
	for {
		// The reader reuses the memory of the rows it fills.
		batch := make([]Row, 64)
		n, err := reader.Read(batch)
		out = append(out, batch[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

func ptr[T any](o models.Opt[T]) *T {
	v, ok := o.Get()
	if !ok {
		return nil
	}
	return &v
}

func intPtr(o models.Opt[int]) *int64 {
	v, ok := o.Get()
	if !ok {
		return nil
	}
	i := int64(v)
	return &i
}
