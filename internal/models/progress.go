package models

import "time"

// ProgressSnapshot is everything a dashboard shows in one read
type ProgressSnapshot struct {
	ProfileID         string            `json:"profileId"`
	CompletedModules  []string          `json:"completedModules"`
	QuizScores        map[string]int    `json:"quizScores"`
	PerfectQuizzes    []string          `json:"perfectQuizzes"`
	LastActivityDates map[string]string `json:"lastActivityDates"`
	DailyStreak       int               `json:"dailyStreak"`
	SubjectStreaks    map[string]int    `json:"subjectStreaks"`
	Badges            []string          `json:"badges"`
	UnlockedSkills    []string          `json:"unlockedSkills"`
	XP                map[string]int    `json:"xp"`
}

// CompletionResult reports what RecordCompletion changed
type CompletionResult struct {
	ModuleID       string   `json:"moduleId"`
	NewlyCompleted bool     `json:"newlyCompleted"`
	SubjectStreak  int      `json:"subjectStreak"`
	NewBadges      []string `json:"newBadges"`
}

// ScoreResult reports what RecordQuizScore changed
type ScoreResult struct {
	ModuleID  string   `json:"moduleId"`
	Percent   int      `json:"percent"`
	Perfect   bool     `json:"perfect"`
	NewBadges []string `json:"newBadges"`
}

// StreakSummary holds the global and per-subject streaks
type StreakSummary struct {
	DailyStreak    int               `json:"dailyStreak"`
	Dates          []string          `json:"dates"`
	SubjectStreaks map[string]int    `json:"subjectStreaks"`
	LastActivity   map[string]string `json:"lastActivity"`
	Today          string            `json:"today"`
}

// BadgeStatus is a catalog badge with the profile's earned flag
type BadgeStatus struct {
	Badge
	Earned bool `json:"earned"`
}

// SkillNodeStatus is a skill node with the profile's unlocked flag
type SkillNodeStatus struct {
	SkillNode
	Unlocked bool `json:"unlocked"`
}

// SkillTreeView is the skill tree of one subject for a profile
type SkillTreeView struct {
	SubjectID string            `json:"subjectId"`
	XP        int               `json:"xp"`
	Nodes     []SkillNodeStatus `json:"nodes"`
}

// ReconcileReport lists what Reconcile changed for one profile
type ReconcileReport struct {
	ProfileID      string   `json:"profileId"`
	Added          []string `json:"added"`
	Removed        []string `json:"removed"`
	UnlockedSkills []string `json:"unlockedSkills"`
}

// Changed reports whether reconcile modified the badge list
func (r ReconcileReport) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// Profile holds the learner's settings
type Profile struct {
	ProfileID        string `json:"profileId"`
	UserName         string `json:"userName"`
	Theme            string `json:"theme"`
	StudyTimerCycles int    `json:"studyTimerCycles"`
}

// ProfileUpdate is a partial profile change; nil fields are left alone
type ProfileUpdate struct {
	UserName *string `json:"userName,omitempty" validate:"omitempty,min=1,max=40"`
	Theme    *string `json:"theme,omitempty" validate:"omitempty,min=1"`
}

// ChallengeStatus is today's daily challenge for a profile
type ChallengeStatus struct {
	Date      string    `json:"date"`
	Challenge Challenge `json:"challenge"`
	Answered  bool      `json:"answered"`
	Correct   *bool     `json:"correct,omitempty"`
}

// ChallengeResult is the outcome of answering the daily challenge
type ChallengeResult struct {
	Date          string   `json:"date"`
	Correct       bool     `json:"correct"`
	CorrectAnswer int      `json:"correctAnswer"`
	DailyStreak   int      `json:"dailyStreak"`
	NewBadges     []string `json:"newBadges"`
}

// Quote is a motivational quote
type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// ProfileDocumentVersion is the current export format version
const ProfileDocumentVersion = 1

// ProfileDocument is a versioned export of every key of a profile
type ProfileDocument struct {
	Version    int               `json:"version"`
	ProfileID  string            `json:"profileId"`
	ExportedAt time.Time         `json:"exportedAt"`
	Entries    map[string]string `json:"entries"`
}

// ImportResult reports what Import wrote
type ImportResult struct {
	ProfileID        string          `json:"profileId"`
	Keys             []string        `json:"keys"`
	NormalizedScores []string        `json:"normalizedScores,omitempty"`
	Reconcile        ReconcileReport `json:"reconcile"`
}
