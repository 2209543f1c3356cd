package util

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// FormatDuration formats a duration as m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	m := total / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatHz formats a frequency compactly: 50, 500, 1k, 2.5k, 16k.
func FormatHz(hz float64) string {
	if hz < 1000 {
		return strconv.FormatFloat(math.Round(hz), 'f', -1, 64)
	}
	k := math.Round(hz/100) / 10
	return strconv.FormatFloat(k, 'f', -1, 64) + "k"
}

// FormatDb formats a level with one decimal and an explicit sign.
func FormatDb(db float64) string {
	if math.Abs(db) < 0.05 {
		return "0.0 dB"
	}
	return fmt.Sprintf("%+.1f dB", db)
}
