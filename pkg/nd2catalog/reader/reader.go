// Package reader adapts external ND2 readers to catalog records.
//
// Decoding the ND2 format is left to the implementations of Opener and
// ExposureReader. The Adapter turns their output into models.FileRecord
// values and contains their failures: a reader error never aborts the
// extraction of the other fields.
package reader

import (
	"time"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
)

// StackMetadata is the file-level metadata reported by a stack reader.
type StackMetadata struct {
	// FrameRate is nil when the file does not record a frame rate.
	FrameRate *float64 `json:"frame_rate"`
	// BitDepth is the number of bits per sample held in memory.
	BitDepth int `json:"bitsize_memory"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	// Frames is the number of frames in the sequence.
	Frames    int       `json:"sequence_count"`
	TimeStart time.Time `json:"time_start"`
}

// FrameMetadata is the per-frame metadata reported by a stack reader.
type FrameMetadata struct {
	// TMs is the acquisition time relative to the start, in milliseconds.
	TMs float64 `json:"t_ms"`
	// XUm and YUm are the stage position in micrometres.
	XUm float64 `json:"x_um"`
	YUm float64 `json:"y_um"`
}

// Stack is an opened image stack.
type Stack interface {
	Metadata() StackMetadata
	// FrameMetadata returns the metadata of every frame in order.
	FrameMetadata() ([]FrameMetadata, error)
	// ReadFrames loads the selected frames fully into memory.
	ReadFrames(r models.FrameRange) (*models.Stack, error)
	Close() error
}

// Opener opens image stacks.
type Opener interface {
	Open(path string) (Stack, error)
}

// ExposureReader reports the camera exposure time of every acquisition in
// a file, in milliseconds. It is independent of Opener so that each can
// fail without affecting the other.
type ExposureReader interface {
	ExposureTimes(path string) ([]float64, error)
}
