package models

// LeaderboardEntry is one row of the leaderboard
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	Level         int    `json:"level"`
	Modules       int    `json:"modules"`
	Badges        int    `json:"badges"`
	Perfect       int    `json:"perfect"`
	Streak        int    `json:"streak"`
	IsCurrentUser bool   `json:"isCurrentUser"`
}

// SubjectProgress is completion progress within one subject
type SubjectProgress struct {
	SubjectID      string `json:"subjectId"`
	Name           string `json:"name"`
	Color          string `json:"color"`
	Completed      int    `json:"completed"`
	Total          int    `json:"total"`
	CompletionRate int    `json:"completionRate"`
	AverageScore   int    `json:"averageScore"`
}

// ActivityDay is the number of modules completed on one date
type ActivityDay struct {
	Date    string `json:"date"`
	Modules int    `json:"modules"`
}

// PerformanceSummary is the learner's performance overview
type PerformanceSummary struct {
	CompletedModules int               `json:"completedModules"`
	AverageScore     int               `json:"averageScore"`
	CompletionRate   int               `json:"completionRate"`
	PerfectRate      int               `json:"perfectRate"`
	PerfectQuizzes   int               `json:"perfectQuizzes"`
	DailyStreak      int               `json:"dailyStreak"`
	Subjects         []SubjectProgress `json:"subjects"`
	RecentActivity   []ActivityDay     `json:"recentActivity"`
}

// BadgeChallenge is a badge suggested for the current week with progress toward it
type BadgeChallenge struct {
	Badge    Badge  `json:"badge"`
	Week     string `json:"week"`
	Current  int    `json:"current"`
	Target   int    `json:"target"`
	Progress int    `json:"progress"`
}
