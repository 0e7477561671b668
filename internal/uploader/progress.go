package uploader

import (
	"fmt"
	"math"
	"time"
)

// Progress reports server-acknowledged bytes for one transfer.
type Progress struct {
	BytesUploaded int64
	BytesTotal    int64
	Percent       int
}

func newProgress(uploaded, total int64) Progress {
	percent := 100
	if total > 0 {
		percent = int(math.Round(float64(uploaded) / float64(total) * 100))
	}
	return Progress{
		BytesUploaded: uploaded,
		BytesTotal:    total,
		Percent:       percent,
	}
}

// ETA estimates the time remaining from the average rate so far. It returns
// "" until at least one byte has been acknowledged.
func ETA(uploaded, total int64, elapsed time.Duration) string {
	if uploaded <= 0 || elapsed <= 0 || total <= uploaded {
		return ""
	}

	rate := float64(uploaded) / elapsed.Seconds()
	remaining := math.Round(float64(total-uploaded) / rate)

	switch {
	case remaining < 10:
		return "a few seconds"
	case remaining < 60:
		return fmt.Sprintf("~%ds", int(remaining))
	default:
		return fmt.Sprintf("~%dm", int(math.Round(remaining/60)))
	}
}
