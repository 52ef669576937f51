package model

import (
	"fmt"
	"time"
)

type HumanTime struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

var InitialHumanTime = HumanTime{}

// NewHumanTime decomposes an elapsed duration. Days are not rolled over into months.
// Negative durations are treated as zero.
func NewHumanTime(d time.Duration) HumanTime {
	if d <= 0 {
		return InitialHumanTime
	}
	day := 24 * time.Hour
	days := d / day
	d -= days * day
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	return HumanTime{
		Days:    int64(days),
		Hours:   int64(hours),
		Minutes: int64(minutes),
		Seconds: int64(d / time.Second),
	}
}

func (h HumanTime) String() string {
	return fmt.Sprintf("%dd %02dh %02dm %02ds", h.Days, h.Hours, h.Minutes, h.Seconds)
}
