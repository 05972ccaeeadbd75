// Package filename extracts acquisition parameters from the lab's file
// naming convention.
//
// A file name is a list of tokens separated by underscores, ending with a
// numeric file number, e.g. "10x_100mbar_sola100_001.nd2".
package filename

import (
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
)

const (
	substrSola  = "sola"
	substrSolis = "solis"
	substrNgul  = "ngul"
)

// magnifications lists the objective labels recognised as magnification tokens.
var magnifications = map[string]bool{
	"10x":     true,
	"20x":     true,
	"100x":    true,
	"100xOil": true,
	"100xoil": true,
	"1x":      true,
	"2x":      true,
	"4x":      true,
	"40x":     true,
}

// Stem returns the file name without its extension.
func Stem(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

// Tokens splits the stem of fileName on underscores.
func Tokens(fileName string) []string {
	return strings.Split(Stem(fileName), "_")
}

// Parse reads the fields encoded in fileName into a partial record.
// Unrecognised tokens are ignored. Fields that cannot be extracted are left
// absent and reported as warnings on logger; Parse never fails.
func Parse(fileName string, logger *slog.Logger) models.FileRecord {
	if logger == nil {
		logger = slog.Default()
	}
	tokens := Tokens(fileName)

	var rec models.FileRecord
	for _, tok := range tokens {
		if p, ok := pressure(tok); ok {
			rec.Pressure = models.Some(p)
		}
		if magnifications[tok] {
			prefix, _, _ := strings.Cut(tok, "x")
			rec.Mag = models.Some(prefix + "x")
		}
	}
	if !rec.Pressure.IsSet() {
		rec.Pressure = models.Some(models.PressureNaN)
	}

	last := tokens[len(tokens)-1]
	if isNumeric(last) {
		rec.FileNbr = models.Some(last)
	} else {
		logger.Warn("file naming error: could not extract the file number",
			slog.String("file_name", fileName))
	}

	if name, intensity, ok := lightSource(tokens, fileName, logger); ok {
		rec.LightSource = models.Some(name)
		rec.LightSourceIntensity = models.Some(intensity)
	}

	if conc, ok := concentration(tokens, fileName, logger); ok {
		rec.DNAConcNgul = models.Some(conc)
	}
	return rec
}

func pressure(tok string) (string, bool) {
	for _, suffix := range []string{"mbar", "mBar"} {
		if strings.HasSuffix(tok, suffix) {
			return strings.TrimSuffix(tok, suffix), true
		}
	}
	return "", false
}

// lightSource finds the lamp and its intensity. A "sola" token takes
// precedence over a "solis" token.
func lightSource(tokens []string, fileName string, logger *slog.Logger) (string, float64, bool) {
	if tok, ok := firstContaining(tokens, substrSola); ok {
		_, after, _ := strings.Cut(tok, substrSola)
		return substrSola, intensity(after, fileName, logger), true
	}
	if tok, ok := firstContaining(tokens, substrSolis); ok {
		_, after, _ := strings.Cut(tok, substrSolis)
		return substrSolis, intensity(after, fileName, logger), true
	}
	return "", 0, false
}

// intensity parses a lamp intensity, retrying without a trailing percent
// sign. It returns -1 when neither form is a number.
func intensity(s, fileName string, logger *slog.Logger) float64 {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if trimmed, ok := strings.CutSuffix(s, "%"); ok {
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return v
		}
	}
	logger.Warn("could not extract the lamp intensity from the file name",
		slog.String("file_name", fileName),
		slog.String("token", s))
	return -1
}

func concentration(tokens []string, fileName string, logger *slog.Logger) (float64, bool) {
	tok, ok := firstContaining(tokens, substrNgul)
	if !ok {
		return 0, false
	}
	before, _, _ := strings.Cut(tok, substrNgul)
	v, err := strconv.ParseFloat(before, 64)
	if err != nil {
		logger.Warn("could not extract the DNA concentration from the file name",
			slog.String("file_name", fileName),
			slog.String("token", tok))
		return 0, false
	}
	return v, true
}

func firstContaining(tokens []string, substr string) (string, bool) {
	for _, tok := range tokens {
		if strings.Contains(tok, substr) {
			return tok, true
		}
	}
	return "", false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
