package reader

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/filename"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
)

// Options configures metadata extraction.
type Options struct {
	// ReadTimeSteps adds the timestamp of every frame.
	ReadTimeSteps bool
	// ReadXYPos adds the stage position of every frame.
	ReadXYPos bool
	// ReadFileNameInfo adds the fields encoded in the file name.
	ReadFileNameInfo bool
}

// Adapter combines an Opener and an ExposureReader into catalog records.
type Adapter struct {
	opener   Opener
	exposure ExposureReader
	logger   *slog.Logger
}

// NewAdapter creates an Adapter. exposure may be nil, in which case the
// average exposure time is always absent.
func NewAdapter(opener Opener, exposure ExposureReader, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		opener:   opener,
		exposure: exposure,
		logger:   logger,
	}
}

// Info returns the record of the ND2 file at path: identity fields, the
// average exposure time, the file name fields when requested and the
// technical metadata, merged in that order with later sources winning.
//
// A path without the ".nd2" suffix returns a *FormatError. Reader failures
// are logged and leave the affected fields absent.
func (a *Adapter) Info(path string, opts Options) (models.FileRecord, error) {
	if !strings.HasSuffix(path, ".nd2") {
		return models.FileRecord{}, &FormatError{Path: path}
	}

	name := filepath.Base(path)
	rec := models.FileRecord{
		FilePath:          path,
		FileName:          name,
		ParentFolder:      filepath.Base(filepath.Dir(path)),
		AvgExposureTimeMs: a.AvgExposureTime(path),
	}
	if opts.ReadFileNameInfo {
		rec.Overlay(filename.Parse(name, a.logger))
	}
	rec.Overlay(a.Technical(path, opts))
	return rec, nil
}

// Technical returns the technical metadata of the file at path. On any
// reader failure the error is logged and an empty record is returned.
func (a *Adapter) Technical(path string, opts Options) models.FileRecord {
	rec, err := a.technical(path, opts)
	if err != nil {
		a.logger.Error("metadata reader failed, ignoring this file",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return models.FileRecord{}
	}
	return rec
}

func (a *Adapter) technical(path string, opts Options) (rec models.FileRecord, err error) {
	if a.opener == nil {
		return rec, NewReaderError(path, "metadata", fmt.Errorf("no stack reader configured"))
	}
	stack, err := a.opener.Open(path)
	if err != nil {
		return rec, NewReaderError(path, "metadata", err)
	}
	defer stack.Close()

	md := stack.Metadata()
	if md.FrameRate == nil {
		return rec, NewReaderError(path, "metadata", ErrNoFrameRate)
	}
	frameRate := round(*md.FrameRate, 2)

	frames, err := stack.FrameMetadata()
	if err != nil {
		return rec, NewReaderError(path, "metadata", err)
	}
	if len(frames) == 0 {
		return rec, NewReaderError(path, "metadata", fmt.Errorf("no frame metadata"))
	}

	rec.FrameRate = models.Some(frameRate)
	rec.BitDepth = models.Some(md.BitDepth)
	rec.Width = models.Some(md.Width)
	rec.Height = models.Some(md.Height)
	rec.NFrames = models.Some(md.Frames)
	rec.TimeStart = models.Some(md.TimeStart)
	if frameRate != 0 {
		rec.TimeS = models.Some(round(float64(md.Frames)/frameRate, 0))
	}
	rec.XUmFrame0 = models.Some(frames[0].XUm)
	rec.YUmFrame0 = models.Some(frames[0].YUm)

	if opts.ReadTimeSteps {
		rec.TMs = make([]float64, len(frames))
		for i, f := range frames {
			rec.TMs[i] = f.TMs
		}
	}
	if opts.ReadXYPos {
		rec.X = make([]float64, len(frames))
		rec.Y = make([]float64, len(frames))
		for i, f := range frames {
			rec.X[i] = f.XUm
			rec.Y[i] = f.YUm
		}
	}
	return rec, nil
}

// AvgExposureTime returns the mean exposure time of the acquisitions in the
// file, rounded to two decimals. A reader failure is logged and yields an
// absent value.
func (a *Adapter) AvgExposureTime(path string) models.Opt[float64] {
	if a.exposure == nil {
		return models.None[float64]()
	}
	times, err := a.exposure.ExposureTimes(path)
	if err == nil && len(times) == 0 {
		err = fmt.Errorf("no exposure times")
	}
	if err != nil {
		a.logger.Warn("exposure reader failed, exposure time will not be extracted",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return models.None[float64]()
	}

	var sum float64
	for _, t := range times {
		sum += t
	}
	return models.Some(round(sum/float64(len(times)), 2))
}

// ReadStack loads the selected frames of the file at path into memory.
// The zero FrameRange loads every frame.
func (a *Adapter) ReadStack(path string, r models.FrameRange) (*models.Stack, error) {
	if !strings.HasSuffix(path, ".nd2") {
		return nil, &FormatError{Path: path}
	}
	if a.opener == nil {
		return nil, NewReaderError(path, "pixels", fmt.Errorf("no stack reader configured"))
	}

	start := time.Now()
	a.logger.Info("reading file",
		slog.String("file_name", filepath.Base(path)),
		slog.String("folder", filepath.Base(filepath.Dir(path))))

	stack, err := a.opener.Open(path)
	if err != nil {
		return nil, NewReaderError(path, "pixels", err)
	}
	defer stack.Close()

	pixels, err := stack.ReadFrames(r)
	if err != nil {
		return nil, NewReaderError(path, "pixels", err)
	}

	a.logger.Info("read frames",
		slog.String("file_name", filepath.Base(path)),
		slog.Int("frames", pixels.Frames),
		slog.Float64("seconds", round(time.Since(start).Seconds(), 2)))
	return pixels, nil
}

// ZProjection returns the mean and standard deviation of every pixel of the
// file as a partial record. It loads the whole stack and is slow.
func (a *Adapter) ZProjection(path string) (models.FileRecord, error) {
	a.logger.Info("getting z-projections from file", slog.String("path", path))
	pixels, err := a.ReadStack(path, models.FrameRange{})
	if err != nil {
		return models.FileRecord{}, err
	}
	mean, std := pixels.Stats()
	if math.IsNaN(mean) {
		return models.FileRecord{}, NewReaderError(path, "pixels", fmt.Errorf("empty stack"))
	}
	return models.FileRecord{
		MeanVal: models.Some(mean),
		Std:     models.Some(std),
	}, nil
}

// round rounds x to the given number of decimals, halves to even.
func round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(x*p) / p
}
