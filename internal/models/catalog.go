package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Requirement types a badge can have
const (
	RequirementModulesCompleted = "modules_completed"
	RequirementQuizScore        = "quiz_score"
	RequirementStreak           = "streak"
	RequirementDailyStreak      = "daily_streak"
	RequirementSkillUnlocked    = "skill_unlocked"
	RequirementSpecial          = "special"
)

// IsValidRequirementType reports whether t is a known badge requirement type
func IsValidRequirementType(t string) bool {
	switch t {
	case RequirementModulesCompleted, RequirementQuizScore, RequirementStreak,
		RequirementDailyStreak, RequirementSkillUnlocked, RequirementSpecial:
		return true
	}
	return false
}

// Subject is a learning subject
type Subject struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Color       string `json:"color" yaml:"color"`
	ModuleCount int    `json:"moduleCount" yaml:"module_count"`
}

// Badge is an achievement from the catalog
type Badge struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Icon        string      `json:"icon" yaml:"icon"`
	Color       string      `json:"color" yaml:"color"`
	Requirement Requirement `json:"requirement" yaml:"requirement"`
}

// IsSpecial reports whether the badge can only be awarded manually
func (b Badge) IsSpecial() bool {
	return b.Requirement.Type == RequirementSpecial
}

// Requirement is the rule that earns a badge
type Requirement struct {
	Type      string           `json:"type" yaml:"type"`
	Value     RequirementValue `json:"value" yaml:"value"`
	SubjectID string           `json:"subjectId,omitempty" yaml:"subject_id,omitempty"`
}

// RequirementValue is either a threshold (modules, perfect quizzes, days) or an id (skill, special tag)
type RequirementValue struct {
	raw string
}

// NewThreshold builds a numeric requirement value
func NewThreshold(n int) RequirementValue {
	return RequirementValue{raw: strconv.Itoa(n)}
}

// NewTarget builds an id requirement value
func NewTarget(id string) RequirementValue {
	return RequirementValue{raw: id}
}

// Int returns the value as a threshold
func (v RequirementValue) Int() (int, bool) {
	n, err := strconv.Atoi(v.raw)
	return n, err == nil
}

// String returns the raw value
func (v RequirementValue) String() string {
	return v.raw
}

// UnmarshalYAML accepts any scalar
func (v *RequirementValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: requirement value must be a scalar", node.Line)
	}
	v.raw = strings.TrimSpace(node.Value)
	return nil
}

// MarshalJSON emits thresholds as numbers and ids as strings
func (v RequirementValue) MarshalJSON() ([]byte, error) {
	if n, ok := v.Int(); ok {
		return json.Marshal(n)
	}
	return json.Marshal(v.raw)
}

// UnmarshalJSON accepts a number or a string
func (v *RequirementValue) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		v.raw = n.String()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v.raw = s
	return nil
}

// SkillNode is one node of a subject skill tree
type SkillNode struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Icon        string   `json:"icon" yaml:"icon"`
	Level       int      `json:"level" yaml:"level"`
	XPRequired  int      `json:"xpRequired" yaml:"xp_required"`
	Unlocks     []string `json:"unlocks" yaml:"unlocks"`
}

// Peer is a fixed leaderboard competitor
type Peer struct {
	Name    string `json:"name" yaml:"name"`
	Modules int    `json:"modules" yaml:"modules"`
	Badges  int    `json:"badges" yaml:"badges"`
	Score   int    `json:"score" yaml:"score"`
	Level   int    `json:"level" yaml:"level"`
}

// Challenge is a daily challenge question
type Challenge struct {
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"-" yaml:"correct_answer"`
	Subject       string   `json:"subject" yaml:"subject"`
}

// SubjectOf returns the subject of a module id: the part before the first '-'
func SubjectOf(moduleID string) string {
	subject, _, _ := strings.Cut(moduleID, "-")
	return subject
}
