package tiling

import (
	"math"
	"os"

	"github.com/antonholmquist/jason"

	"github.com/kbukum/orthotile/errors"
)

// ReadGSD returns the average ground sample distance, in centimetres per
// pixel, from a reconstruction statistics file, rounded to two decimals.
func ReadGSD(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.StatsNotFound(path).WithCause(err)
	}
	defer f.Close()

	stats, err := jason.NewObjectFromReader(f)
	if err != nil {
		return 0, errors.GSDUnreadable(path, err)
	}
	gsd, err := stats.GetFloat64("odm_processing_statistics", "average_gsd")
	if err != nil {
		return 0, errors.GSDUnreadable(path, err)
	}
	return math.Round(gsd*100) / 100, nil
}
