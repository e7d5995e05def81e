package encode

import (
	"fmt"
	"math"
)

// FormatTimestamp renders seconds as an SRT timestamp, "HH:MM:SS,mmm".
// Negative inputs clamp to zero; hours wider than two digits are kept as-is
// so very long media still round-trips.
func FormatTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseTimestamp parses an "HH:MM:SS,mmm" timestamp back to seconds.
func ParseTimestamp(ts string) (float64, error) {
	var h, m, s, ms int64
	if _, err := fmt.Sscanf(ts, "%d:%d:%d,%d", &h, &m, &s, &ms); err != nil {
		return 0, fmt.Errorf("encode: bad timestamp %q: %w", ts, err)
	}
	if m < 0 || m > 59 || s < 0 || s > 59 || ms < 0 || ms > 999 {
		return 0, fmt.Errorf("encode: bad timestamp %q: field out of range", ts)
	}
	return float64(h*3600+m*60+s) + float64(ms)/1000, nil
}
