package utils

import (
	"time"
)

// Offset between the windows epoch (1601) and the unix epoch (1970)
// in 100ns units.
const filetimeEpochDelta = int64(116444736000000000)

// Convert a windows FILETIME (100ns intervals since 1601) to a
// time.Time. Zero or clearly invalid values map to the zero time so
// callers can skip them.
func WinFileTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}

	nsec := (int64(ft) - filetimeEpochDelta) * 100
	if nsec < 0 {
		return time.Time{}
	}
	return time.Unix(0, nsec).UTC()
}

// Chrome timestamps count microseconds from 1601.
func ChromeTime(val int64) time.Time {
	if val == 0 {
		return time.Time{}
	}

	nsec := (val*10 - filetimeEpochDelta) * 100
	if nsec < 0 {
		return time.Time{}
	}
	return time.Unix(0, nsec).UTC()
}

// Firefox timestamps count microseconds from the unix epoch.
func FirefoxTime(val int64) time.Time {
	if val == 0 {
		return time.Time{}
	}
	return time.Unix(0, val*1000).UTC()
}
