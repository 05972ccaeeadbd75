package models

import (
	"fmt"
	"math"
)

// MaxStackSamples bounds the number of samples a Stack may hold (4 GiB).
const MaxStackSamples = 1 << 31

// FrameRange selects frames [Start, End). The zero value selects every frame.
type FrameRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// All reports whether the range selects the whole stack.
func (r FrameRange) All() bool {
	return r.Start == 0 && r.End == 0
}

// Stack is a pixel array loaded fully into memory.
type Stack struct {
	// Frames, Height and Width are the stack dimensions.
	Frames int `json:"frames"`
	Height int `json:"height"`
	Width  int `json:"width"`
	// Data holds Frames*Height*Width samples, frame-major then row-major.
	Data []uint16 `json:"-"`
}

// StackSamples returns frames*height*width, failing on negative dimensions
// or when the product exceeds MaxStackSamples.
func StackSamples(frames, height, width int) (int, error) {
	if frames < 0 || height < 0 || width < 0 {
		return 0, fmt.Errorf("invalid stack dimensions %dx%dx%d", frames, height, width)
	}
	n := 1
	for _, d := range []int{frames, height, width} {
		if d == 0 {
			return 0, nil
		}
		if n > MaxStackSamples/d {
			return 0, fmt.Errorf("stack of %dx%dx%d samples is too large", frames, height, width)
		}
		n *= d
	}
	return n, nil
}

// Frame returns the samples of frame i, or nil when i is out of range.
func (s *Stack) Frame(i int) []uint16 {
	n := s.Height * s.Width
	if i < 0 || i >= s.Frames || (i+1)*n > len(s.Data) {
		return nil
	}
	return s.Data[i*n : (i+1)*n]
}

// Stats returns the mean and the population standard deviation of every
// sample in the stack.
func (s *Stack) Stats() (mean, std float64) {
	if len(s.Data) == 0 {
		return math.NaN(), math.NaN()
	}
	var m, m2 float64
	for i, v := range s.Data {
		x := float64(v)
		d := x - m
		m += d / float64(i+1)
		m2 += d * (x - m)
	}
	return m, math.Sqrt(m2 / float64(len(s.Data)))
}
