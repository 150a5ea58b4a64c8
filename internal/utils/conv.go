package utils

import (
	"strconv"
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// ParseID parses a positive row id from a path parameter.
func ParseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func UintPtr(v uint) *uint {
	return &v
}

func FormatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
