package subject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func done(ids ...string) []CompletedSubject {
	completed := make([]CompletedSubject, 0, len(ids))
	for _, id := range ids {
		completed = append(completed, CompletedSubject{SubjectID: id, Credits: 4})
	}
	return completed
}

func TestEvaluate(t *testing.T) {
	all := PrerequisiteGroup{ID: "g1", GroupType: GroupAll, SubjectIDs: []string{"s1", "s2"}}
	anyOf := PrerequisiteGroup{ID: "g2", GroupType: GroupAny, SubjectIDs: []string{"s3", "s4"}}
	minimum := PrerequisiteGroup{
		ID: "g3", GroupType: GroupMinimum, MinimumCompletedSubjects: 2, MinimumCredits: 10,
		SubjectIDs: []string{"s5", "s6", "s7"},
	}
	with := func(g PrerequisiteGroup, logic string) PrerequisiteGroup {
		g.Logic = logic
		return g
	}

	tests := []struct {
		name        string
		groups      []PrerequisiteGroup
		completed   []CompletedSubject
		wantEnroll  bool
		wantMissing []string
		wantDetails string
	}{
		{name: "no groups", wantEnroll: true, wantMissing: []string{}, wantDetails: "No prerequisites required"},
		{
			name:        "none group",
			groups:      []PrerequisiteGroup{{ID: "g0", GroupType: GroupNone}},
			wantEnroll:  true,
			wantMissing: []string{},
			wantDetails: "No prerequisites required",
		},
		{
			name:        "all: one missing",
			groups:      []PrerequisiteGroup{all},
			completed:   done("s1"),
			wantMissing: []string{"s2"},
			wantDetails: "Missing prerequisites: s2. Unsatisfied groups: g1",
		},
		{
			name:        "all: satisfied",
			groups:      []PrerequisiteGroup{all},
			completed:   done("s2", "s1"),
			wantEnroll:  true,
			wantMissing: []string{},
			wantDetails: "All prerequisites satisfied",
		},
		{name: "any", groups: []PrerequisiteGroup{anyOf}, completed: done("s4"), wantEnroll: true, wantMissing: []string{}},
		{name: "any: none done", groups: []PrerequisiteGroup{anyOf}, wantMissing: []string{"s3", "s4"}},
		{name: "minimum: too few credits", groups: []PrerequisiteGroup{minimum}, completed: done("s5", "s6"), wantMissing: []string{"s7"}},
		{
			name:   "minimum: enough",
			groups: []PrerequisiteGroup{minimum},
			completed: []CompletedSubject{
				{SubjectID: "s5", Credits: 4}, {SubjectID: "s7", Credits: 6},
			},
			wantEnroll:  true,
			wantMissing: []string{},
		},
		{name: "and", groups: []PrerequisiteGroup{all, anyOf}, completed: done("s1", "s2"), wantMissing: []string{"s3", "s4"}},
		{
			name: "or", groups: []PrerequisiteGroup{with(all, LogicOr), anyOf}, completed: done("s1", "s2"),
			wantEnroll: true, wantMissing: []string{"s3", "s4"},
		},
		{
			name: "xor: both satisfied", groups: []PrerequisiteGroup{with(all, LogicXor), anyOf}, completed: done("s1", "s2", "s3"),
			wantMissing: []string{},
		},
		{
			name: "xor: one satisfied", groups: []PrerequisiteGroup{with(all, LogicXor), anyOf}, completed: done("s3"),
			wantEnroll: true, wantMissing: []string{"s1", "s2"},
		},
		{
			name: "threshold: half of three rounds up", groups: []PrerequisiteGroup{with(all, LogicThreshold), anyOf, minimum},
			completed: done("s3"), wantMissing: []string{"s1", "s2", "s5", "s6", "s7"},
		},
		{
			name: "threshold: two of three", groups: []PrerequisiteGroup{with(all, LogicThreshold), anyOf, minimum},
			completed: done("s1", "s2", "s3"), wantEnroll: true, wantMissing: []string{"s5", "s6", "s7"},
		},
		{
			name:        "shared subjects are reported once",
			groups:      []PrerequisiteGroup{all, {ID: "g4", GroupType: GroupAll, SubjectIDs: []string{"s2", "s8"}}},
			wantMissing: []string{"s1", "s2", "s8"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(tt.groups, tt.completed)
			assert.Equal(t, tt.wantEnroll, res.CanEnroll, res.Details)
			assert.Equal(t, tt.wantMissing, res.MissingPrerequisites)
			assert.Len(t, append(res.SatisfiedGroups, res.UnsatisfiedGroups...), len(tt.groups))
			if tt.wantDetails != "" {
				assert.Equal(t, tt.wantDetails, res.Details)
			}
		})
	}
}

// With AND logic and ALL groups, a student may enroll exactly when every listed subject is done.
func TestEvaluate_allGroups(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := []string{"a", "b", "c", "d", "e"}
		var groups []PrerequisiteGroup
		for i, n := 0, rapid.IntRange(1, 3).Draw(t, "groups"); i < n; i++ {
			groups = append(groups, PrerequisiteGroup{
				ID:         ids[i],
				GroupType:  GroupAll,
				SubjectIDs: rapid.SliceOfNDistinct(rapid.SampledFrom(ids), 1, 3, rapid.ID[string]).Draw(t, "subjects"),
			})
		}
		completed := rapid.SliceOfDistinct(rapid.SampledFrom(ids), rapid.ID[string]).Draw(t, "completed")

		doneSet := make(map[string]bool)
		for _, id := range completed {
			doneSet[id] = true
		}
		want := true
		for _, g := range groups {
			for _, id := range g.SubjectIDs {
				want = want && doneSet[id]
			}
		}

		res := Evaluate(groups, done(completed...))
		if res.CanEnroll != want {
			t.Fatalf("CanEnroll = %v, want %v (groups %v, completed %v)", res.CanEnroll, want, groups, completed)
		}
		if want != (len(res.MissingPrerequisites) == 0) {
			t.Fatalf("missing %v while CanEnroll = %v", res.MissingPrerequisites, res.CanEnroll)
		}
	})
}

func TestHasCycle(t *testing.T) {
	graph := map[string][]string{
		"s1": nil,
		"s2": {"s1"},
		"s3": {"s2", "s1"},
		"s4": {"s5"},
		"s5": {"s6"},
		"s6": {"s4"},
	}
	prereqs := func(id string) []string { return graph[id] }

	tests := []struct {
		start string
		want  bool
	}{
		{start: "s1"},
		{start: "s3"},
		{start: "s4", want: true},
		{start: "s6", want: true},
		{start: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			assert.Equal(t, tt.want, hasCycle(tt.start, prereqs))
		})
	}
}
