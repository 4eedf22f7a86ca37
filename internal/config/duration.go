package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "%s: invalid duration %q", path, raw)
	}
	if d < 0 {
		return 0, errors.Newf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// parseSecondsOrDuration accepts a bare integer as seconds ("5") or a Go duration ("5s")
// and returns it as a duration string.
func parseSecondsOrDuration(path, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return "", errors.Newf("%s: must be >= 0", path)
		}
		return (time.Duration(n) * time.Second).String(), nil
	}
	if _, err := ParseDurationField(path, s); err != nil {
		return "", err
	}
	return s, nil
}
