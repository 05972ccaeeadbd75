package models

import (
	"strconv"
	"strings"
)

// DefaultCameraPixelSizeUm is the physical pixel pitch of the lab camera.
const DefaultCameraPixelSizeUm = 16

// MagnificationFactor converts a magnification label such as "100x" or
// "100xOil" to its numeric factor.
func MagnificationFactor(mag string) (float64, bool) {
	prefix, _, found := strings.Cut(mag, "x")
	if !found {
		return 0, false
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ScalePixPerUm returns the image scale in pixels per micrometre for the
// given objective magnification and camera pixel pitch.
// The sample-plane pixel size is the camera pixel size divided by the
// magnification.
func ScalePixPerUm(mag string, cameraPixelSizeUm float64) (float64, bool) {
	f, ok := MagnificationFactor(mag)
	if !ok || cameraPixelSizeUm <= 0 {
		return 0, false
	}
	return f / cameraPixelSizeUm, true
}

// NormalizePressure replaces a decimal comma with a period.
func NormalizePressure(p string) string {
	return strings.ReplaceAll(p, ",", ".")
}
