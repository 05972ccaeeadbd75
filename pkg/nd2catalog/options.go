// Package nd2catalog builds spreadsheet catalogs of ND2 microscope
// recordings and reconstructs video handles from them.
package nd2catalog

import (
	"log/slog"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/reader"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/registry"
)

// Options configures catalog building.
type Options struct {
	// Adapter reads the ND2 files. It is required.
	Adapter *reader.Adapter
	// Schema selects the column layout (waves, dld, plain).
	Schema models.Schema
	// ReadFileNameInfo adds the fields encoded in the file names.
	// If nil, defaults to true.
	ReadFileNameInfo *bool
	// ReadTimeSteps adds the per-frame timestamps.
	ReadTimeSteps bool
	// ReadXYPos adds the per-frame stage positions.
	ReadXYPos bool
	// ZProjection adds the pixel mean and standard deviation of every
	// file. It reads every stack in full and is slow.
	ZProjection bool
	// Registry, when set, records every built catalog.
	Registry *registry.Registry
	// Logger receives progress and failure messages. If nil,
	// slog.Default() is used.
	Logger *slog.Logger
}

// DefaultOptions returns default build options.
func DefaultOptions() Options {
	return Options{
		Schema: models.SchemaWaves,
	}
}

// ShouldReadFileNameInfo returns whether to parse the file names.
func (o Options) ShouldReadFileNameInfo() bool {
	if o.ReadFileNameInfo != nil {
		return *o.ReadFileNameInfo
	}
	return true
}

func (o Options) schema() models.Schema {
	if o.Schema == "" {
		return models.SchemaWaves
	}
	return o.Schema
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) readerOptions() reader.Options {
	return reader.Options{
		ReadTimeSteps:    o.ReadTimeSteps,
		ReadXYPos:        o.ReadXYPos,
		ReadFileNameInfo: o.ShouldReadFileNameInfo(),
	}
}

// VideoOptions configures GetVideo.
type VideoOptions struct {
	// Reread extracts the metadata from the file again and only fills the
	// fields the reader missed from the catalog row.
	Reread bool
	// ReadImage loads the pixel data of FrameRange.
	ReadImage bool
	// FrameRange selects the frames to load. The zero value loads every
	// frame.
	FrameRange models.FrameRange
	// CameraPixelSizeUm is the camera pixel pitch. If zero,
	// models.DefaultCameraPixelSizeUm is used.
	CameraPixelSizeUm float64
	// ExpDir is recorded on the handle as its experiment directory.
	ExpDir string
}

func (o VideoOptions) cameraPixelSizeUm() float64 {
	if o.CameraPixelSizeUm > 0 {
		return o.CameraPixelSizeUm
	}
	return models.DefaultCameraPixelSizeUm
}
