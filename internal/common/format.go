package common

import "strconv"

// FormatSize renders a byte count the way the vault lists files:
// below 1 KiB as "N Bytes", below 1 MiB as "N KB", otherwise as "N MB".
// Division truncates. Negative sizes mean the size is unknown.
func FormatSize(size int64) string {
	if size < 0 {
		return "Unknown"
	}
	if size < 1024 {
		return strconv.FormatInt(size, 10) + " Bytes"
	}
	kb := size / 1024
	if kb < 1024 {
		return strconv.FormatInt(kb, 10) + " KB"
	}
	return strconv.FormatInt(kb/1024, 10) + " MB"
}
