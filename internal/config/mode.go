package config

import "git.home.luguber.info/inful/confexport/internal/foundation/normalization"

// Mode selects the output strategy of an export.
type Mode string

const (
	ModePerFile Mode = "per-file"
	ModeFlat    Mode = "flat"
	ModeChunked Mode = "chunked"
)

var modeNormalizer = normalization.NewNormalizer("export mode", map[string]Mode{
	"per-file": ModePerFile,
	"per_file": ModePerFile,
	"perfile":  ModePerFile,
	"tree":     ModePerFile,
	"flat":     ModeFlat,
	"single":   ModeFlat,
	"chunked":  ModeChunked,
	"chunks":   ModeChunked,
}, ModeChunked)

// ParseMode converts user input into a Mode. Empty input yields the default.
func ParseMode(raw string) (Mode, error) {
	return modeNormalizer.NormalizeWithError(raw)
}
