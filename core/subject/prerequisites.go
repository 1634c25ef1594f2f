package subject

import (
	"fmt"
	"strings"
)

// Prerequisite group types
const (
	GroupAll     = "ALL"
	GroupAny     = "ANY"
	GroupMinimum = "MINIMUM"
	GroupNone    = "NONE"
)

// Logic combining the groups of a subject. The logic of the first group applies.
const (
	LogicAnd       = "AND"
	LogicOr        = "OR"
	LogicXor       = "XOR"
	LogicThreshold = "THRESHOLD"
)

var (
	GroupTypes = []string{GroupAll, GroupAny, GroupMinimum, GroupNone}
	Logics     = []string{LogicAnd, LogicOr, LogicXor, LogicThreshold}
)

type PrerequisiteGroup struct {
	ID                       string   `json:"id"`
	SubjectID                string   `json:"subject_id"`
	GroupType                string   `json:"group_type"`
	Logic                    string   `json:"logic"`
	MinimumCredits           uint64   `json:"minimum_credits"`
	MinimumCompletedSubjects uint64   `json:"minimum_completed_subjects"`
	SubjectIDs               []string `json:"subject_ids"`
}

// CompletedSubject is a subject a student passed, with the credits it earned.
type CompletedSubject struct {
	SubjectID string `json:"subject_id"`
	Credits   uint64 `json:"credits"`
}

type CheckResult struct {
	CanEnroll            bool     `json:"can_enroll"`
	MissingPrerequisites []string `json:"missing_prerequisites"`
	SatisfiedGroups      []string `json:"satisfied_groups"`
	UnsatisfiedGroups    []string `json:"unsatisfied_groups"`
	Details              string   `json:"details"`
}

// Evaluate checks the prerequisite groups of a subject against the subjects a student completed.
func Evaluate(groups []PrerequisiteGroup, completed []CompletedSubject) CheckResult {
	res := CheckResult{
		MissingPrerequisites: []string{},
		SatisfiedGroups:      []string{},
		UnsatisfiedGroups:    []string{},
	}
	if len(groups) == 0 || (len(groups) == 1 && groups[0].GroupType == GroupNone) {
		res.CanEnroll = true
		res.SatisfiedGroups = groupIDs(groups)
		res.Details = "No prerequisites required"
		return res
	}

	done := make(map[string]uint64, len(completed))
	for _, c := range completed {
		done[c.SubjectID] += c.Credits
	}

	missing := make(map[string]bool)
	for _, g := range groups {
		if groupSatisfied(g, done) {
			res.SatisfiedGroups = append(res.SatisfiedGroups, g.ID)
			continue
		}
		res.UnsatisfiedGroups = append(res.UnsatisfiedGroups, g.ID)
		for _, id := range g.SubjectIDs {
			if _, ok := done[id]; !ok && !missing[id] {
				missing[id] = true
				res.MissingPrerequisites = append(res.MissingPrerequisites, id)
			}
		}
	}

	satisfied := len(res.SatisfiedGroups)
	switch groups[0].Logic {
	case LogicOr:
		res.CanEnroll = satisfied > 0
	case LogicXor:
		res.CanEnroll = satisfied == 1
	case LogicThreshold:
		res.CanEnroll = satisfied >= (len(groups)+1)/2
	default:
		res.CanEnroll = len(res.UnsatisfiedGroups) == 0
	}

	if res.CanEnroll {
		res.Details = "All prerequisites satisfied"
	} else {
		res.Details = fmt.Sprintf(
			"Missing prerequisites: %s. Unsatisfied groups: %s",
			strings.Join(res.MissingPrerequisites, ", "),
			strings.Join(res.UnsatisfiedGroups, ", "),
		)
	}
	return res
}

func groupSatisfied(g PrerequisiteGroup, done map[string]uint64) bool {
	switch g.GroupType {
	case GroupAll:
		for _, id := range g.SubjectIDs {
			if _, ok := done[id]; !ok {
				return false
			}
		}
		return true
	case GroupAny:
		for _, id := range g.SubjectIDs {
			if _, ok := done[id]; ok {
				return true
			}
		}
		return false
	case GroupMinimum:
		var count, credits uint64
		for _, id := range g.SubjectIDs {
			if c, ok := done[id]; ok {
				count++
				credits += c
			}
		}
		return count >= g.MinimumCompletedSubjects && credits >= g.MinimumCredits
	}
	return true
}

func groupIDs(groups []PrerequisiteGroup) []string {
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids
}

// hasCycle reports whether `start` can reach itself through prerequisites. `prereqs` returns
// the prerequisite ids of a subject.
func hasCycle(start string, prereqs func(id string) []string) bool {
	seen := map[string]bool{}
	stack := append([]string{}, prereqs(start)...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == start {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, prereqs(id)...)
	}
	return false
}
