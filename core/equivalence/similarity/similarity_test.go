package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestHours(t *testing.T) {
	tests := []struct {
		a, b uint64
		want int
	}{
		{100, 100, 100},
		{0, 0, 100},
		{100, 90, 80},
		{90, 100, 80},
		{100, 50, 50},
		{0, 10, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Hours(tc.a, tc.b), "Hours(%d, %d)", tc.a, tc.b)
	}
}

func TestCreditsAndLevel(t *testing.T) {
	assert.Equal(t, 100, Credits(4, 4))
	assert.Equal(t, 90, Credits(4, 6))
	assert.Equal(t, 70, Credits(8, 4))
	assert.Equal(t, 50, Credits(4, 12))
	assert.Equal(t, 20, Credits(4, 20))

	assert.Equal(t, 100, Level("graduate", "Graduate"))
	assert.Equal(t, 60, Level("undergraduate", "graduate"))
	assert.Equal(t, 70, Level("postgraduate", "graduate"))
	assert.Equal(t, 30, Level("undergraduate", "doctorate"))
}

func TestType(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, TypeFull},
		{90, TypeFull},
		{89, TypePartial},
		{70, TypePartial},
		{69, TypeConditional},
		{50, TypeConditional},
		{49, TypeNone},
		{0, TypeNone},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Type(tc.score), "Type(%d)", tc.score)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name        string
		score       int
		usedContent bool
		method      string
		want        int
	}{
		{"automatic with content", 80, true, MethodAutomatic, 88},
		{"content boost capped", 95, true, MethodAutomatic, 100},
		{"automatic metadata only", 64, false, MethodAutomatic, 64},
		{"manual floor", 50, false, MethodManual, 80},
		{"manual keeps higher", 90, false, MethodManual, 90},
		{"institutional", 40, false, MethodInstitutional, 100},
		{"hybrid", 80, false, MethodHybrid, 84},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Confidence(tc.score, tc.usedContent, tc.method))
		})
	}
}

func TestMetadataScore(t *testing.T) {
	a := Metadata{Credits: 4, Level: "undergraduate", Department: "Mathematics", WorkloadHours: 60}
	assert.Equal(t, 100, MetadataScore(a, a))

	b := Metadata{Credits: 6, Level: "undergraduate", Department: "Applied Mathematics", WorkloadHours: 75}
	// credits 80, level 100, department 70, workload 80
	assert.Equal(t, 84, MetadataScore(a, b))
	assert.Equal(t, 84, MetadataScore(b, a))

	c := Metadata{Credits: 12, Level: "graduate", Department: "History", WorkloadHours: 200}
	// credits 40, level 50, department 30, workload 60
	assert.Equal(t, 43, MetadataScore(a, c))
}

func TestText(t *testing.T) {
	assert.Equal(t, 100, Text("", English, " ", English))
	assert.Equal(t, 0, Text("Linear algebra", English, "", English))
	assert.Equal(t, 100, Text("Introduction to linear algebra", English, "Introduction to linear algebra", English))

	same := Text("Introduction to linear algebra", English, "Introduction to linear algebra", English)
	related := Text("Introduction to linear algebra", English, "Linear algebra and matrices", English)
	unrelated := Text("Introduction to linear algebra", English, "Medieval european history", English)
	assert.Greater(t, same, related)
	assert.Greater(t, related, unrelated)

	crossLanguage := Text("Introduction to linear algebra", English, "Introduction to linear algebra", Portuguese)
	assert.Less(t, crossLanguage, same)
}

func TestList(t *testing.T) {
	assert.Equal(t, 100, List(nil, English, nil, English))
	assert.Equal(t, 0, List([]string{"calculus"}, English, nil, English))

	topics := []string{"Limits and continuity of functions", "Derivatives and calculus applications"}
	assert.GreaterOrEqual(t, List(topics, English, topics, English), 87)
	assert.Greater(t,
		List(topics, English, []string{"Limits of functions"}, English),
		List(topics, English, []string{"Romantic poetry"}, English),
	)
}

func TestCompare(t *testing.T) {
	calculus := Subject{
		Metadata: Metadata{Credits: 4, Level: "undergraduate", Department: "Mathematics", WorkloadHours: 60},
		Content: &Content{
			Language:    English,
			Title:       "Calculus I",
			Description: "Differential calculus of one variable functions",
			Objectives:  []string{"Understand limits", "Compute derivatives"},
			Topics:      []string{"Limits", "Derivatives", "Applications of derivatives"},
			Workload:    Workload{Theoretical: 40, Practical: 20},
		},
	}

	t.Run("metadata only", func(t *testing.T) {
		a := Subject{Metadata: calculus.Metadata}
		res := Compare(a, a)
		assert.False(t, res.UsedContent)
		assert.Nil(t, res.Content)
		assert.Equal(t, 100, res.Score)
		assert.Equal(t, TypeFull, res.Type)
	})

	t.Run("content and metadata", func(t *testing.T) {
		res := Compare(calculus, calculus)
		assert.True(t, res.UsedContent)
		if assert.NotNil(t, res.Content) {
			assert.Equal(t, 100, res.Content.Workload)
			assert.Equal(t, (res.Content.Overall*80+res.MetadataScore*20)/100, res.Score)
		}
		assert.Contains(t, res.Details, "Topics:")
	})

	t.Run("empty content falls back to metadata", func(t *testing.T) {
		b := Subject{Metadata: calculus.Metadata, Content: &Content{}}
		res := Compare(calculus, b)
		assert.False(t, res.UsedContent)
		assert.Equal(t, res.MetadataScore, res.Score)
	})
}

func TestScoreBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOfN(rapid.SampledFrom([]string{
			"calculus", "algebra", "linear", "introduction", "history", "cálculo", "programação",
			"systems", "data", "theory", "and", "of", "algorithm", "análise",
		}), 0, 8)
		text := func(label string) string {
			var s string
			for i, w := range words.Draw(t, label) {
				if i > 0 {
					s += " "
				}
				s += w
			}
			return s
		}
		lang := rapid.SampledFrom([]string{English, Portuguese, Spanish, French, ""})

		score := Text(text("a"), lang.Draw(t, "langA"), text("b"), lang.Draw(t, "langB"))
		if score < 0 || score > 100 {
			t.Fatalf("text score out of range: %d", score)
		}

		hours := rapid.Uint64Range(0, 1000)
		if h := Hours(hours.Draw(t, "h1"), hours.Draw(t, "h2")); h < 0 || h > 100 {
			t.Fatalf("hours score out of range: %d", h)
		}

		meta := func(label string) Metadata {
			return Metadata{
				Credits:       rapid.Uint64Range(0, 20).Draw(t, label+"Credits"),
				Level:         rapid.SampledFrom([]string{"undergraduate", "graduate", "postgraduate"}).Draw(t, label+"Level"),
				Department:    rapid.SampledFrom([]string{"", "Math", "Applied Math", "History"}).Draw(t, label+"Dept"),
				WorkloadHours: hours.Draw(t, label+"Hours"),
			}
		}
		a, b := meta("a"), meta("b")
		if MetadataScore(a, b) != MetadataScore(b, a) {
			t.Fatalf("metadata score is not symmetric")
		}
		res := Compare(Subject{Metadata: a}, Subject{Metadata: b})
		if res.Score < 0 || res.Score > 100 || res.Type != Type(res.Score) {
			t.Fatalf("inconsistent result: %+v", res)
		}
		method := rapid.SampledFrom(Methods).Draw(t, "method")
		if c := Confidence(res.Score, rapid.Bool().Draw(t, "content"), method); c < 0 || c > 100 {
			t.Fatalf("confidence out of range: %d", c)
		}
	})
}
