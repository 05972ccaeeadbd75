// Package readertest provides in-memory readers for tests.
package readertest

import (
	"fmt"
	"time"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/reader"
)

// File describes one synthetic ND2 file.
type File struct {
	Metadata reader.StackMetadata
	Frames   []reader.FrameMetadata
	// Pixels is returned by ReadFrames; a zero stack is derived from the
	// metadata when nil.
	Pixels *models.Stack
	// OpenErr fails Open.
	OpenErr error
	// Exposure lists the exposure times; ExposureErr fails the query.
	Exposure    []float64
	ExposureErr error
}

// Reader serves File values by path and implements both reader.Opener
// and reader.ExposureReader.
type Reader struct {
	Files map[string]*File
	// Opened counts the calls to Open per path.
	Opened map[string]int
}

// New returns an empty Reader.
func New() *Reader {
	return &Reader{
		Files:  make(map[string]*File),
		Opened: make(map[string]int),
	}
}

// Add registers f under path and returns it.
func (r *Reader) Add(path string, f *File) *File {
	r.Files[path] = f
	return f
}

// Open implements reader.Opener.
func (r *Reader) Open(path string) (reader.Stack, error) {
	r.Opened[path]++
	f, ok := r.Files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	return &stack{f: f}, nil
}

// ExposureTimes implements reader.ExposureReader.
func (r *Reader) ExposureTimes(path string) ([]float64, error) {
	f, ok := r.Files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	if f.ExposureErr != nil {
		return nil, f.ExposureErr
	}
	return f.Exposure, nil
}

type stack struct {
	f *File
}

func (s *stack) Metadata() reader.StackMetadata {
	return s.f.Metadata
}

func (s *stack) FrameMetadata() ([]reader.FrameMetadata, error) {
	return s.f.Frames, nil
}

func (s *stack) ReadFrames(fr models.FrameRange) (*models.Stack, error) {
	px := s.f.Pixels
	if px == nil {
		md := s.f.Metadata
		px = &models.Stack{
			Frames: md.Frames,
			Height: md.Height,
			Width:  md.Width,
			Data:   make([]uint16, md.Frames*md.Height*md.Width),
		}
	}
	if fr.All() {
		return px, nil
	}
	if fr.Start < 0 || fr.End > px.Frames || fr.Start >= fr.End {
		return nil, fmt.Errorf("frame range [%d, %d) out of bounds", fr.Start, fr.End)
	}
	n := px.Height * px.Width
	return &models.Stack{
		Frames: fr.End - fr.Start,
		Height: px.Height,
		Width:  px.Width,
		Data:   px.Data[fr.Start*n : fr.End*n],
	}, nil
}

func (s *stack) Close() error {
	return nil
}

// Simple returns a valid File with the given frame rate, frame count and
// start time, 4x2 pixels per frame and a stage position per frame.
func Simple(frameRate float64, frames int, start time.Time) *File {
	f := &File{
		Metadata: reader.StackMetadata{
			FrameRate: &frameRate,
			BitDepth:  16,
			Width:     4,
			Height:    2,
			Frames:    frames,
			TimeStart: start,
		},
		Exposure: []float64{10, 20},
	}
	for i := 0; i < frames; i++ {
		f.Frames = append(f.Frames, reader.FrameMetadata{
			TMs: float64(i) * 1000 / frameRate,
			XUm: 100 + float64(i),
			YUm: 200 + float64(i),
		})
	}
	return f
}
