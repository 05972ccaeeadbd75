package reader

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
)

// ExecOpener implements Opener by running an external helper command.
//
// The helper is invoked as
//
//	<command...> metadata <path>
//	<command...> pixels <path> <start> <end>
//
// "metadata" prints a JSON object with the StackMetadata keys and a
// "frames" array of FrameMetadata. "pixels" prints one JSON header line
// {"frames":n,"height":h,"width":w} followed by n*h*w little-endian uint16
// samples. start and end are both 0 to request every frame.
type ExecOpener struct {
	Command []string
}

// ExecExposureReader implements ExposureReader by running
//
//	<command...> exposure <path>
//
// which prints {"exposure_times_ms": [...]}.
type ExecExposureReader struct {
	Command []string
}

type execMetadata struct {
	StackMetadata
	Frames []FrameMetadata `json:"frames"`
}

type execPixelsHeader struct {
	Frames int `json:"frames"`
	Height int `json:"height"`
	Width  int `json:"width"`
}

type execExposure struct {
	ExposureTimesMs []float64 `json:"exposure_times_ms"`
}

type execStack struct {
	command []string
	path    string
	md      execMetadata
}

// Open runs the metadata query and returns a stack backed by the helper.
func (o ExecOpener) Open(path string) (Stack, error) {
	out, err := runHelper(o.Command, "metadata", path)
	if err != nil {
		return nil, err
	}
	var md execMetadata
	if err := json.Unmarshal(out, &md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &execStack{command: o.Command, path: path, md: md}, nil
}

func (s *execStack) Metadata() StackMetadata {
	return s.md.StackMetadata
}

func (s *execStack) FrameMetadata() ([]FrameMetadata, error) {
	return s.md.Frames, nil
}

func (s *execStack) ReadFrames(r models.FrameRange) (*models.Stack, error) {
	out, err := runHelper(s.command, "pixels", s.path, strconv.Itoa(r.Start), strconv.Itoa(r.End))
	if err != nil {
		return nil, err
	}
	return decodePixels(bytes.NewReader(out))
}

func (s *execStack) Close() error {
	return nil
}

// ExposureTimes runs the exposure query.
func (e ExecExposureReader) ExposureTimes(path string) ([]float64, error) {
	out, err := runHelper(e.Command, "exposure", path)
	if err != nil {
		return nil, err
	}
	var exp execExposure
	if err := json.Unmarshal(out, &exp); err != nil {
		return nil, fmt.Errorf("decode exposure times: %w", err)
	}
	return exp.ExposureTimesMs, nil
}

func decodePixels(r io.Reader) (*models.Stack, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read pixels header: %w", err)
	}
	var hdr execPixelsHeader
	if err := json.Unmarshal(line, &hdr); err != nil {
		return nil, fmt.Errorf("decode pixels header: %w", err)
	}
	n, err := models.StackSamples(hdr.Frames, hdr.Height, hdr.Width)
	if err != nil {
		return nil, fmt.Errorf("invalid pixels header %s: %w", bytes.TrimSpace(line), err)
	}

	data := make([]uint16, n)
	if err := binary.Read(br, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("read pixels: %w", err)
	}
	return &models.Stack{
		Frames: hdr.Frames,
		Height: hdr.Height,
		Width:  hdr.Width,
		Data:   data,
	}, nil
}

func runHelper(command []string, args ...string) ([]byte, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("no reader command configured")
	}
	argv := append(append([]string{}, command[1:]...), args...)
	cmd := exec.Command(command[0], argv...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("%s %s: %w: %s", command[0], args[0], err, msg)
		}
		return nil, fmt.Errorf("%s %s: %w", command[0], args[0], err)
	}
	return out, nil
}
