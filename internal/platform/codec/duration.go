package codec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var isoDurationPattern = regexp.MustCompile(
	`^P(\d+[.]?\d*Y)?(\d+[.]?\d*M)?(\d+[.]?\d*W)?(\d+[.]?\d*D)?T?(\d+[.]?\d*H)?(\d+[.]?\d*M)?(\d+[.]?\d*S)?$`,
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
	secondsPerWeek   = 7 * secondsPerDay
)

// ParseDuration converts an ISO-8601 duration such as "PT10M32.5S" into seconds.
// Year and month components have no fixed length and are rejected when non-zero.
func ParseDuration(raw string) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" || value == "P" || value == "PT" {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}

	groups := isoDurationPattern.FindStringSubmatch(value)
	if groups == nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}

	years, err := component(groups[1])
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	months, err := component(groups[2])
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	if years > 0 || months > 0 {
		return 0, fmt.Errorf("duration %q has a year or month component", raw)
	}

	units := []struct {
		group  string
		factor float64
	}{
		{groups[3], secondsPerWeek},
		{groups[4], secondsPerDay},
		{groups[5], secondsPerHour},
		{groups[6], secondsPerMinute},
		{groups[7], 1},
	}

	var total float64
	for _, unit := range units {
		n, err := component(unit.group)
		if err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", raw, err)
		}
		total += n * unit.factor
	}

	return total, nil
}

func component(group string) (float64, error) {
	if group == "" {
		return 0, nil
	}
	return strconv.ParseFloat(group[:len(group)-1], 64)
}
