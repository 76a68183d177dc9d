package utils

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration formata uma duração para exibição amigável
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour

	m := d / time.Minute
	d -= m * time.Minute

	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	} else if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FromUnixSeconds converte segundos Unix fracionários para time.Time em UTC
func FromUnixSeconds(seconds float64) time.Time {
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}

// FormatDateTime formata um time.Time para exibição
func FormatDateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
