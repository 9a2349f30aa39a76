package mediainfo

import (
	"fmt"
	"strconv"
	"time"
)

// Info holds the technical facts about one audio file, as reported by
// mediainfo. All fields stay strings on the wire because mediainfo emits
// them that way; Seconds and Channels parse on demand.
type Info struct {
	Format       string `json:"format"`
	Channels     string `json:"channels"`
	SamplingRate string `json:"sampling_rate"`
	BitDepth     string `json:"bit_depth"`
	Duration     string `json:"duration"`
}

// Seconds returns the duration as a time.Duration, or 0 when unparseable.
func (i *Info) Seconds() time.Duration {
	if i == nil {
		return 0
	}
	f, err := strconv.ParseFloat(i.Duration, 64)
	if err != nil {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

// DurationDisplay formats the duration as "4m 12s" (or "42s" under a minute).
func (i *Info) DurationDisplay() string {
	sec := int64(i.Seconds().Seconds())
	if sec <= 59 {
		return fmt.Sprintf("%ds", sec)
	}
	return fmt.Sprintf("%dm %ds", sec/60, sec%60)
}
