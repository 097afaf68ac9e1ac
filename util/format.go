package util

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatSize renders a byte count with binary (1024-based) units.
// Values under 1KB print as integers, larger values with one decimal:
// 512 -> "512B", 1536 -> "1.5KB".
func FormatSize(bytes int64) string {
	if bytes == 0 {
		return "0B"
	}
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d%s", int64(size), sizeUnits[unit])
	}
	return fmt.Sprintf("%.1f%s", size, sizeUnits[unit])
}
