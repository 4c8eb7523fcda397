package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateCallID returns a unique call session identifier.
func GenerateCallID() string {
	return fmt.Sprintf("call_%s", uuid.New().String())
}

// GenerateMessageID returns a unique message identifier.
func GenerateMessageID() string {
	return fmt.Sprintf("msg_%s", uuid.New().String())
}

// TruncateRunes caps s at n runes. Arabic text makes byte-based
// truncation unsafe.
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// FormatDate renders a timestamp as the date string used for report
// partitioning.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
