package services

import "strings"

// Store keys of a profile namespace. The layout matches the browser localStorage
// one so dumps can be imported verbatim.
const (
	KeyCompletedModules    = "completedModules"
	KeyQuizScores          = "quizScores"
	KeyPerfectQuizzes      = "perfectQuizzes"
	KeyDailyStreak         = "dailyStreak"
	KeySubjectStreaks      = "subjectStreaks"
	KeyLastActivityDates   = "lastActivityDates"
	KeyBadges              = "badges"
	KeyUnlockedSkills      = "unlockedSkills"
	KeyUserName            = "userName"
	KeyTheme               = "theme"
	KeyCompletedChallenges = "completedChallenges"
	KeyStudyTimerCycles    = "studyTimerCycles"

	// PrefixLastActivity + subject holds the subject's last activity date as a raw string
	PrefixLastActivity = "lastActivity_"
	// PrefixQuizAttempts + module id holds the module's attempt list
	PrefixQuizAttempts = "quizAttempts_"
)

func lastActivityKey(subject string) string {
	return PrefixLastActivity + subject
}

func attemptsKey(moduleID string) string {
	return PrefixQuizAttempts + moduleID
}

// moduleFromAttemptsKey returns the module id of a quizAttempts_ key
func moduleFromAttemptsKey(key string) (string, bool) {
	return strings.CutPrefix(key, PrefixQuizAttempts)
}
