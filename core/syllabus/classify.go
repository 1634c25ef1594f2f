package syllabus

import (
	"sort"
	"strings"
	"unicode"

	"github.com/academictoken/registry/core/equivalence/similarity"
)

const (
	maxKeywords   = 10
	minKeywordLen = 5
	minAreaScore  = 2
	keywordWeight = 3
	topicWeight   = 2
	contentWeight = 1
)

var languageMarkers = map[string]map[string]bool{
	similarity.English:    wordSet("the", "and", "of", "to", "with", "for", "is", "on", "students", "will"),
	similarity.Portuguese: wordSet("de", "da", "do", "das", "dos", "e", "para", "com", "os", "em", "uma", "não", "ao", "alunos"),
}

var natureTerms = []struct {
	nature string
	terms  []string
}{
	{NatureTheoretical, []string{"teoria", "teórica", "teórico", "theory", "theoretical", "conceitos", "concepts", "fundamentos", "fundamentals"}},
	{NaturePractical, []string{"prática", "prático", "practical", "hands-on", "exercícios", "exercises", "aplicação", "application"}},
	{NatureProject, []string{"projeto", "project", "trabalho final", "final project", "desenvolvimento de", "development of"}},
	{NatureLab, []string{"laboratório", "laboratory", "experimento", "experiment", "bancada"}},
}

var areaTerms = []struct {
	area  string
	terms []string
}{
	{"MATHEMATICS", []string{
		"matemática", "cálculo", "álgebra", "geometria", "estatística", "probabilidade", "derivadas", "integrais",
		"mathematics", "calculus", "algebra", "geometry", "statistics", "probability", "derivatives", "integrals",
	}},
	{"COMPUTER_SCIENCE", []string{
		"computação", "programação", "algoritmo", "software", "banco de dados", "informática",
		"computer", "programming", "algorithm", "database", "artificial intelligence", "python", "java",
	}},
	{"PHYSICS", []string{
		"física", "mecânica", "termodinâmica", "eletromagnetismo", "óptica", "quântica",
		"physics", "mechanics", "thermodynamics", "electromagnetism", "optics", "quantum",
	}},
	{"CHEMISTRY", []string{
		"química", "orgânica", "inorgânica", "reações", "compostos",
		"chemistry", "organic", "inorganic", "reactions", "compounds", "molecular",
	}},
	{"BIOLOGY", []string{
		"biologia", "genética", "ecologia", "anatomia", "fisiologia", "célula",
		"biology", "genetics", "ecology", "anatomy", "physiology", "cell", "evolution",
	}},
	{"ENGINEERING", []string{
		"engenharia", "estruturas", "materiais", "construção",
		"engineering", "structures", "materials", "manufacturing",
	}},
	{"BUSINESS", []string{
		"administração", "economia", "gestão", "marketing", "finanças", "contabilidade",
		"business", "management", "economics", "finance", "accounting", "entrepreneurship",
	}},
	{"LAW", []string{
		"direito", "jurídica", "constituição", "tribunal", "justiça",
		"law", "constitution", "court", "justice", "jurisprudence",
	}},
	{"MEDICINE", []string{
		"medicina", "saúde", "clínica", "diagnóstico", "farmacologia", "patologia",
		"medical", "health", "clinical", "diagnosis", "pharmacology", "pathology",
	}},
	{"HUMANITIES", []string{
		"filosofia", "história", "literatura", "sociologia", "antropologia", "psicologia",
		"philosophy", "history", "literature", "sociology", "anthropology", "psychology",
	}},
}

var keywordStopwords = wordSet(
	"about", "after", "basic", "being", "between", "course", "during", "other", "their", "these", "those", "through",
	"which", "while", "where", "students", "student", "subject", "introduction", "using",
	"sobre", "entre", "curso", "disciplina", "durante", "outros", "outras", "alunos", "aluno", "introdução",
	"através", "quais", "quando", "sendo", "estes", "essas", "esses", "pelos", "pelas",
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

// detectLanguage picks portuguese or english by counting marker words; ties go to english.
func detectLanguage(text string) string {
	counts := make(map[string]int, len(languageMarkers))
	for _, w := range words(text) {
		for lang, markers := range languageMarkers {
			if markers[w] {
				counts[lang]++
			}
		}
	}
	if counts[similarity.Portuguese] > counts[similarity.English] {
		return similarity.Portuguese
	}
	return similarity.English
}

// classifyNature returns the nature with most term occurrences, theoretical when nothing matches.
func classifyNature(text string) string {
	lower := strings.ToLower(text)
	best, bestScore := NatureTheoretical, 0
	for _, n := range natureTerms {
		score := 0
		for _, term := range n.terms {
			score += strings.Count(lower, term)
		}
		if score > bestScore {
			best, bestScore = n.nature, score
		}
	}
	return best
}

// classifyArea weights keyword hits over topic hits over plain content hits.
func classifyArea(text string, keywords, topics []string) string {
	lower := strings.ToLower(text)
	best, bestScore := AreaGeneral, 0
	for _, a := range areaTerms {
		score := 0
		for _, term := range a.terms {
			for _, kw := range keywords {
				if strings.Contains(strings.ToLower(kw), term) {
					score += keywordWeight
				}
			}
			for _, topic := range topics {
				if strings.Contains(strings.ToLower(topic), term) {
					score += topicWeight
				}
			}
			if strings.Contains(lower, term) {
				score += contentWeight
			}
		}
		if score > bestScore {
			best, bestScore = a.area, score
		}
	}
	if bestScore < minAreaScore {
		return AreaGeneral
	}
	return best
}

// extractKeywords ranks the longer words of the title, description, objectives and topics by frequency.
func extractKeywords(doc Document) []string {
	parts := []string{doc.Title, doc.Description}
	parts = append(parts, doc.Objectives...)
	parts = append(parts, topicsOf(doc.TopicUnits)...)

	stop := languageMarkers[doc.Language]
	freq := make(map[string]int)
	for _, w := range words(strings.Join(parts, " ")) {
		if len([]rune(w)) < minKeywordLen || keywordStopwords[w] || stop[w] {
			continue
		}
		freq[w]++
	}

	kws := make([]string, 0, len(freq))
	for w := range freq {
		kws = append(kws, w)
	}
	sort.Slice(kws, func(i, j int) bool {
		if freq[kws[i]] != freq[kws[j]] {
			return freq[kws[i]] > freq[kws[j]]
		}
		return kws[i] < kws[j]
	})
	if len(kws) > maxKeywords {
		kws = kws[:maxKeywords]
	}
	return kws
}
