package feed

import (
	"github.com/vibechat/vibechat-backend/internal/models"
)

// dayKeyFormat renders a message's calendar day, matching the granularity
// the window is bucketed by for display.
const dayKeyFormat = "Mon Jan 02 2006"

type DayGroup struct {
	Date     string                   `json:"date"`
	Messages []models.MessageResponse `json:"messages"`
}

// GroupByDay partitions an already time-ordered window into calendar-day
// buckets. Bucket order follows the first occurrence of each day in the
// window and arrival order is preserved inside every bucket.
func GroupByDay(messages []models.Message) []DayGroup {
	groups := make([]DayGroup, 0)
	index := make(map[string]int)

	for i := range messages {
		key := messages[i].CreatedAt.Format(dayKeyFormat)
		at, ok := index[key]
		if !ok {
			at = len(groups)
			index[key] = at
			groups = append(groups, DayGroup{Date: key})
		}
		groups[at].Messages = append(groups[at].Messages, messages[i].ToResponse())
	}

	return groups
}
