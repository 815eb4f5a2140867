package schedjobs

import (
	"context"
	"time"
)

// CronJob runs Task at every minute whose bits are all set.
type CronJob struct {
	ID          string
	Minutes     uint64 // 60 bits
	Hours       uint32 // 24 bits
	DaysOfMonth uint32 // 31 bits
	Weekdays    uint8  // 7 bits
	Task        func(ctx context.Context) error
	// Job-specific callback
	OnFinished func(error)
}

// NewEveryMinCronJob matches every minute. Narrow its bits to schedule less often.
func NewEveryMinCronJob(jobID string, task func(ctx context.Context) error) *CronJob {
	return &CronJob{
		ID:          jobID,
		Minutes:     AllMinutes,
		Hours:       AllHours,
		DaysOfMonth: AllDaysOfMonth,
		Weekdays:    AllWeekdays,
		Task:        task,
	}
}

const (
	AllMinutes     uint64 = 0xFFFFFFFFFFFFFFF // 60 bits set
	AllHours       uint32 = 0xFFFFFF          // 24 bits set
	AllWeekdays    uint8  = 0b01111111        // sun:0b00000001, mon:0b00000010, ..., sat:0b01000000
	AllDaysOfMonth uint32 = 0x7FFFFFFF        // 31 bits set
)

// EveryNMinutes sets minutes 0, n, 2n, ... n <= 1 means every minute
func EveryNMinutes(n int) uint64 {
	if n <= 1 {
		return AllMinutes
	}
	var minutes []int
	for m := 0; m < 60; m += n {
		minutes = append(minutes, m)
	}
	return BitsFromMinutes(minutes)
}

func BitsFromMinutes(list []int) uint64 {
	var bits uint64
	for _, v := range list {
		if v >= 0 && v < 60 {
			bits |= 1 << v
		}
	}
	return bits
}

func (job *CronJob) Matches(now time.Time) bool {
	if (job.Minutes & (1 << now.Minute())) == 0 {
		return false
	}
	if (job.Hours & (1 << now.Hour())) == 0 {
		return false
	}
	if (job.DaysOfMonth & (1 << (now.Day() - 1))) == 0 { // now.Day() = 1..31 -> bit 0 = day 1
		return false
	}
	return (job.Weekdays & (1 << now.Weekday())) != 0
}
