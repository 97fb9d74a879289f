// Package catalog holds the static learning data: subjects, badges, skill trees,
// leaderboard peers and daily challenge questions.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"learnverse/internal/models"
	contextutils "learnverse/internal/utils"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog is an immutable, validated set of static learning data
type Catalog struct {
	subjects   []models.Subject
	badges     []models.Badge
	skillTrees map[string][]models.SkillNode
	peers      []models.Peer
	challenges []models.Challenge

	subjectIndex map[string]int
	badgeIndex   map[string]int
	skillIndex   map[string]models.SkillNode
}

type catalogFile struct {
	Subjects   []models.Subject              `yaml:"subjects"`
	Badges     []models.Badge                `yaml:"badges"`
	SkillTrees map[string][]models.SkillNode `yaml:"skill_trees"`
	Peers      []models.Peer                 `yaml:"peers"`
	Challenges []models.Challenge            `yaml:"challenges"`
}

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog from path, or the embedded one when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidConfig, "failed to read catalog %s: %v", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidConfig, "failed to parse catalog: %v", err)
	}
	c := &Catalog{
		subjects:   f.Subjects,
		badges:     f.Badges,
		skillTrees: f.SkillTrees,
		peers:      f.Peers,
		challenges: f.Challenges,
	}
	if c.skillTrees == nil {
		c.skillTrees = map[string][]models.SkillNode{}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.index()
	return c, nil
}

// Validate rejects duplicate ids, unknown requirement types and dangling references
func (c *Catalog) Validate() error {
	var problems []string

	subjects := map[string]bool{}
	for _, s := range c.subjects {
		if s.ID == "" {
			problems = append(problems, "subject with empty id")
		}
		if subjects[s.ID] {
			problems = append(problems, fmt.Sprintf("duplicate subject %q", s.ID))
		}
		if s.ModuleCount < 0 {
			problems = append(problems, fmt.Sprintf("subject %q has negative module_count", s.ID))
		}
		subjects[s.ID] = true
	}

	skills := map[string]bool{}
	for subject, nodes := range c.skillTrees {
		if !subjects[subject] {
			problems = append(problems, fmt.Sprintf("skill tree for unknown subject %q", subject))
		}
		for _, n := range nodes {
			if skills[n.ID] {
				problems = append(problems, fmt.Sprintf("duplicate skill %q", n.ID))
			}
			if n.XPRequired < 0 {
				problems = append(problems, fmt.Sprintf("skill %q has negative xp_required", n.ID))
			}
			skills[n.ID] = true
		}
	}
	for _, nodes := range c.skillTrees {
		for _, n := range nodes {
			for _, u := range n.Unlocks {
				if !skills[u] {
					problems = append(problems, fmt.Sprintf("skill %q unlocks unknown skill %q", n.ID, u))
				}
			}
		}
	}

	badges := map[string]bool{}
	for _, b := range c.badges {
		if b.ID == "" {
			problems = append(problems, "badge with empty id")
		}
		if badges[b.ID] {
			problems = append(problems, fmt.Sprintf("duplicate badge %q", b.ID))
		}
		badges[b.ID] = true

		req := b.Requirement
		if !models.IsValidRequirementType(req.Type) {
			problems = append(problems, fmt.Sprintf("badge %q has unknown requirement type %q", b.ID, req.Type))
			continue
		}
		if req.SubjectID != "" && !subjects[req.SubjectID] {
			problems = append(problems, fmt.Sprintf("badge %q references unknown subject %q", b.ID, req.SubjectID))
		}
		switch req.Type {
		case models.RequirementModulesCompleted, models.RequirementQuizScore, models.RequirementStreak, models.RequirementDailyStreak:
			if n, ok := req.Value.Int(); !ok || n < 1 {
				problems = append(problems, fmt.Sprintf("badge %q needs a positive threshold", b.ID))
			}
		case models.RequirementSkillUnlocked:
			if !skills[req.Value.String()] {
				problems = append(problems, fmt.Sprintf("badge %q references unknown skill %q", b.ID, req.Value.String()))
			}
		}
		if (req.Type == models.RequirementQuizScore || req.Type == models.RequirementStreak) && req.SubjectID == "" {
			problems = append(problems, fmt.Sprintf("badge %q needs a subject_id", b.ID))
		}
	}

	for i, ch := range c.challenges {
		if ch.CorrectAnswer < 0 || ch.CorrectAnswer >= len(ch.Options) {
			problems = append(problems, fmt.Sprintf("challenge %d has correct_answer out of range", i))
		}
	}

	if len(problems) > 0 {
		return contextutils.NewAppError(contextutils.ErrorCodeInvalidConfig, contextutils.SeverityFatal,
			"invalid catalog", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Catalog) index() {
	c.subjectIndex = make(map[string]int, len(c.subjects))
	for i, s := range c.subjects {
		c.subjectIndex[s.ID] = i
	}
	c.badgeIndex = make(map[string]int, len(c.badges))
	for i, b := range c.badges {
		c.badgeIndex[b.ID] = i
	}
	c.skillIndex = map[string]models.SkillNode{}
	for _, nodes := range c.skillTrees {
		for _, n := range nodes {
			c.skillIndex[n.ID] = n
		}
	}
}

// Subjects returns every subject in catalog order
func (c *Catalog) Subjects() []models.Subject {
	return append([]models.Subject(nil), c.subjects...)
}

// Subject looks up a subject
func (c *Catalog) Subject(id string) (models.Subject, bool) {
	i, ok := c.subjectIndex[id]
	if !ok {
		return models.Subject{}, false
	}
	return c.subjects[i], true
}

// Badges returns every badge in catalog order
func (c *Catalog) Badges() []models.Badge {
	return append([]models.Badge(nil), c.badges...)
}

// BadgesBySubject returns the badges whose requirement names subjectID
func (c *Catalog) BadgesBySubject(subjectID string) []models.Badge {
	var out []models.Badge
	for _, b := range c.badges {
		if b.Requirement.SubjectID == subjectID {
			out = append(out, b)
		}
	}
	return out
}

// Badge looks up a badge
func (c *Catalog) Badge(id string) (models.Badge, bool) {
	i, ok := c.badgeIndex[id]
	if !ok {
		return models.Badge{}, false
	}
	return c.badges[i], true
}

// SkillTree returns the nodes of a subject's tree in catalog order
func (c *Catalog) SkillTree(subjectID string) ([]models.SkillNode, bool) {
	nodes, ok := c.skillTrees[subjectID]
	if !ok {
		return nil, false
	}
	return append([]models.SkillNode(nil), nodes...), true
}

// SkillTreeSubjects returns the subjects that have a skill tree, sorted
func (c *Catalog) SkillTreeSubjects() []string {
	out := make([]string, 0, len(c.skillTrees))
	for s := range c.skillTrees {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SkillNode looks up a skill node by id
func (c *Catalog) SkillNode(id string) (models.SkillNode, bool) {
	n, ok := c.skillIndex[id]
	return n, ok
}

// Peers returns the fixed leaderboard competitors
func (c *Catalog) Peers() []models.Peer {
	return append([]models.Peer(nil), c.peers...)
}

// Challenges returns the daily challenge questions
func (c *Catalog) Challenges() []models.Challenge {
	return append([]models.Challenge(nil), c.challenges...)
}
