package domain

// Statistics is an aggregate snapshot over one owner's tasks.
// Counts, rates and streaks cover active tasks; DeletedCount covers the recycle bin.
type Statistics struct {
	TotalCount              int            `json:"total_count"`
	CompletedCount          int            `json:"completed_count"`
	PendingCount            int            `json:"pending_count"`
	DeletedCount            int            `json:"deleted_count"`
	CompletionRate          float64        `json:"completion_rate"`
	ThisWeekCount           int            `json:"this_week_count"`
	ThisWeekCompletedCount  int            `json:"this_week_completed_count"`
	ThisMonthCount          int            `json:"this_month_count"`
	ThisMonthCompletedCount int            `json:"this_month_completed_count"`
	PriorityStats           PriorityStats  `json:"priority_stats"`
	CategoryStats           []CategoryStat `json:"category_stats"`
	AverageCompletionPerDay float64        `json:"average_completion_per_day"`
	LongestCompletionStreak int            `json:"longest_completion_streak"`
	CurrentCompletionStreak int            `json:"current_completion_streak"`
}

type PriorityStats struct {
	Normal int `json:"normal"`
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
	Urgent int `json:"urgent"`
}

// Add counts one task at the given priority; out of range values are ignored.
func (p *PriorityStats) Add(priority Priority) {
	switch priority {
	case PriorityNormal:
		p.Normal++
	case PriorityLow:
		p.Low++
	case PriorityMedium:
		p.Medium++
	case PriorityHigh:
		p.High++
	case PriorityUrgent:
		p.Urgent++
	}
}

type CategoryStat struct {
	Category       string  `json:"category"`
	TotalCount     int     `json:"total_count"`
	CompletedCount int     `json:"completed_count"`
	PendingCount   int     `json:"pending_count"`
	CompletionRate float64 `json:"completion_rate"`
}

// CompletionRate returns completed/total as a percentage, 0 when there is nothing to complete.
func CompletionRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}
