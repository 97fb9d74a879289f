package services

import (
	"context"

	"learnverse/internal/catalog"
	"learnverse/internal/models"
	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"
)

// XP returns the experience earned in a subject: xpPerModule for every completed module of it
func XP(completed []string, subject string, xpPerModule int) int {
	n := 0
	for _, id := range completed {
		if models.SubjectOf(id) == subject {
			n++
		}
	}
	return n * xpPerModule
}

// UnlockedSkills recomputes every unlocked skill node from the completed modules,
// in subject then tree order.
func UnlockedSkills(c *catalog.Catalog, completed []string, xpPerModule int) []string {
	out := []string{}
	for _, subject := range c.SkillTreeSubjects() {
		nodes, _ := c.SkillTree(subject)
		xp := XP(completed, subject, xpPerModule)
		for _, n := range nodes {
			if xp >= n.XPRequired {
				out = append(out, n.ID)
			}
		}
	}
	return out
}

// SkillTree returns a subject's skill tree with unlocked flags for the profile
func (s *BadgeService) SkillTree(ctx context.Context, profileID, subjectID string) (result0 *models.SkillTreeView, err error) {
	ctx, span := observability.TraceBadgeFunction(ctx, "SkillTree",
		observability.AttributeProfileID(profileID),
		observability.AttributeSubject(subjectID),
	)
	defer observability.FinishSpan(span, &err)

	nodes, ok := s.catalog.SkillTree(subjectID)
	if !ok {
		return nil, contextutils.NotFoundf("no skill tree for subject %q", subjectID)
	}
	completed, err := readStringList(ctx, s.backend.Namespace(profileID), KeyCompletedModules)
	if err != nil {
		return nil, err
	}

	xp := XP(completed, subjectID, s.xpPerModule)
	view := &models.SkillTreeView{SubjectID: subjectID, XP: xp, Nodes: make([]models.SkillNodeStatus, 0, len(nodes))}
	for _, n := range nodes {
		view.Nodes = append(view.Nodes, models.SkillNodeStatus{SkillNode: n, Unlocked: xp >= n.XPRequired})
	}
	return view, nil
}
