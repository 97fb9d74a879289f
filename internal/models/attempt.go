package models

import (
	"fmt"
	"time"
)

// QuizAttempt is an immutable record of one quiz sitting
type QuizAttempt struct {
	VersionID      string            `json:"versionId"`
	ModuleID       string            `json:"moduleId" validate:"required,moduleid"`
	AttemptNumber  int               `json:"attemptNumber"`
	StartTime      time.Time         `json:"startTime"`
	EndTime        time.Time         `json:"endTime" validate:"gtefield=StartTime"`
	TotalTime      int64             `json:"totalTime" validate:"gte=0"`
	Score          int               `json:"score" validate:"gte=0,ltefield=TotalQuestions"`
	TotalQuestions int               `json:"totalQuestions" validate:"gt=0"`
	Responses      []AttemptResponse `json:"responses" validate:"dive"`
	Questions      []AttemptQuestion `json:"questions" validate:"dive"`
}

// AttemptResponse is the answer given to one question
type AttemptResponse struct {
	QuestionIndex  int   `json:"questionIndex" validate:"gte=0"`
	SelectedAnswer int   `json:"selectedAnswer"`
	IsCorrect      bool  `json:"isCorrect"`
	TimeSpent      int64 `json:"timeSpent" validate:"gte=0"`
}

// AttemptQuestion is a snapshot of a question as it was asked
type AttemptQuestion struct {
	Question       string   `json:"question" validate:"required"`
	Options        []string `json:"options" validate:"min=1"`
	CorrectAnswer  int      `json:"correctAnswer" validate:"gte=0"`
	Explanation    string   `json:"explanation,omitempty"`
	SelectedAnswer *int     `json:"selectedAnswer,omitempty"`
	IsCorrect      bool     `json:"isCorrect"`
}

// AttemptVersionID builds the "<subject>_Module<n>_Attempt<k>" identifier.
// n is the module number after the subject prefix, or the whole id when there is none.
func AttemptVersionID(moduleID string, attemptNumber int) string {
	subject := SubjectOf(moduleID)
	number := moduleID
	if len(moduleID) > len(subject)+1 {
		number = moduleID[len(subject)+1:]
	}
	return fmt.Sprintf("%s_Module%s_Attempt%d", subject, number, attemptNumber)
}
