package validation

import (
	"os"
	"strconv"
	"strings"

	"github.com/vibechat/vibechat-backend/internal/models"
)

func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 4000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 4000
	}
	return max
}

// DefaultPageSize is the feed window page increment.
func DefaultPageSize() int {
	sizeStr := os.Getenv("FEED_PAGE_SIZE")
	if sizeStr == "" {
		return 15
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 {
		return 15
	}
	return size
}

func MaxWindowSize() int {
	maxStr := os.Getenv("MAX_WINDOW_SIZE")
	if maxStr == "" {
		return 300
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 300
	}
	return max
}

// MaxAttachmentSize caps attachment uploads, in bytes.
func MaxAttachmentSize() int64 {
	maxStr := os.Getenv("MAX_ATTACHMENT_SIZE")
	if maxStr == "" {
		return 5 * 1024 * 1024
	}
	max, err := strconv.ParseInt(maxStr, 10, 64)
	if err != nil || max < 1 {
		return 5 * 1024 * 1024
	}
	return max
}

func ValidateMessageText(text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && len(text) <= MaxMessageLength()
}

func ValidateAttachment(file *models.Attachment) bool {
	if file == nil {
		return false
	}
	return strings.TrimSpace(file.URL) != "" &&
		strings.TrimSpace(file.Name) != "" &&
		strings.TrimSpace(file.ContentType) != ""
}

func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}
