package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want string
	}{
		{"zero", 0, "0 Bytes"},
		{"bytes", 512, "512 Bytes"},
		{"just below KB", 1023, "1023 Bytes"},
		{"exact KB", 1024, "1 KB"},
		{"kilobytes", 2048, "2 KB"},
		{"truncates KB", 2047, "1 KB"},
		{"just below MB", 1024*1024 - 1, "1023 KB"},
		{"megabytes", 5 * 1024 * 1024, "5 MB"},
		{"large file", 10 * 1024 * 1024 * 1024, "10240 MB"},
		{"unknown", -1, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSize(tt.size))
		})
	}
}
