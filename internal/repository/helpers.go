package repository

import "strconv"

const defaultPageSize = 50

func itoa(n int) string {
	return strconv.Itoa(n)
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return defaultPageSize
	}
	return limit
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
