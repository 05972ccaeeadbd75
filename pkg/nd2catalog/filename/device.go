package filename

import (
	"path/filepath"
	"strings"
)

// Device type codes.
const (
	DeviceHex     = "H"
	DeviceQuad    = "Q"
	DeviceRandom  = "R"
	DeviceControl = "C"
	DeviceDLD     = "DLD"
)

// DeviceType derives the device type from an experiment directory name such
// as "2022-02-03_400nguL_lambda_hex". Every token is checked and a later
// match replaces an earlier one. It returns "" when nothing matches.
func DeviceType(dirName string) string {
	deviceType := ""
	for _, tok := range strings.Split(dirName, "_") {
		if strings.Contains(tok, "hex") {
			deviceType = DeviceHex
		}
		if strings.Contains(tok, "quad") {
			deviceType = DeviceQuad
		}
		if strings.Contains(tok, "rand") {
			deviceType = DeviceRandom
		}
		if strings.Contains(tok, "control") || strings.Contains(tok, "sparse") {
			deviceType = DeviceControl
		}
	}
	return deviceType
}

// DeviceTypeForDir applies DeviceType to the base name of dir and falls back
// to the name of its parent directory.
func DeviceTypeForDir(dir string) string {
	dir = filepath.Clean(dir)
	if dt := DeviceType(filepath.Base(dir)); dt != "" {
		return dt
	}
	return DeviceType(filepath.Base(filepath.Dir(dir)))
}

// Position returns the field-of-view label of a DLD movie, e.g. "in2" or
// "out1-b" when a filter channel token ("b" or "r") is present.
func Position(fileName string) string {
	var pos, channel string
	for _, tok := range Tokens(fileName) {
		if strings.Contains(tok, "in") || strings.Contains(tok, "out") {
			pos = tok
		}
		if tok == "b" || tok == "r" {
			channel = tok
		}
	}
	if channel != "" {
		pos += "-" + channel
	}
	return pos
}
