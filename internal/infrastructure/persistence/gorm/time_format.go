package gorm

import "time"

// timeLayout is the wire format for timestamps embedded inside JSON columns (chat messages).
const timeLayout = time.RFC3339Nano

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
