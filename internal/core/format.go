package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	metersPerFoot = 0.3048
	metersPerMile = 1609.34
)

// FormatDistance renders meters as a short text in metric or imperial units.
func FormatDistance(meters float64, useMiles bool) string {
	if useMiles {
		if meters < 0.1*metersPerMile {
			return fmt.Sprintf("%d ft", int(math.Floor(meters/metersPerFoot)))
		}
		return scaled(meters/metersPerMile, "mi")
	}
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(math.Floor(meters)))
	}
	return scaled(meters/1000, "km")
}

func scaled(v float64, unit string) string {
	if v >= 100 {
		return fmt.Sprintf("%d %s", int(math.Round(v)), unit)
	}
	s := strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0")
	return s + " " + unit
}
