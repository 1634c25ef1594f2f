package similarity

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// Languages
const (
	English    = "en"
	Portuguese = "pt"
	Spanish    = "es"
	French     = "fr"
)

const (
	languagePenalty  = 5
	partialMatchRate = .8
	ngramSize        = 3
)

var stopwords = map[string]map[string]bool{
	English:    set("the", "and", "for", "with", "from", "into", "that", "this", "are", "its", "their", "will", "use", "using"),
	Portuguese: set("que", "para", "com", "uma", "dos", "das", "por", "como", "mais", "sua", "seu", "nos", "nas", "aos"),
	Spanish:    set("que", "para", "con", "una", "los", "las", "por", "como", "más", "sus", "del"),
	French:     set("les", "des", "une", "pour", "avec", "dans", "par", "sur", "que", "qui", "aux", "est"),
}

var suffixes = map[string][]string{
	English:    {"ing", "ed", "ies", "ment", "tion", "sion"},
	Portuguese: {"ções", "ção", "mente", "mento", "idade", "ismo", "ista", "oso", "osa", "adora", "ador"},
	Spanish:    {"ciones", "ción", "mente", "miento", "idad", "ismo", "ista", "oso", "osa", "adora", "ador"},
	French:     {"tion", "sion", "ment", "ité", "isme", "iste", "euse", "eux", "eure", "eur"},
}

// synonymGroups lists stems that name the same topic across languages.
var synonymGroups = [][]string{
	{"calcul", "cálculo", "calculo", "calculation"},
	{"algebra", "álgebra", "algebraic", "algèbre"},
	{"programm", "programa", "programación", "coding", "development", "desenvolvi", "desarrollo"},
	{"databas", "banco", "bd"},
	{"algorithm", "algoritmo", "algorithme", "procedure"},
	{"differential", "diferencial", "derivative"},
	{"integral", "integra", "integr"},
	{"linear", "lineal", "linéaire"},
	{"physic", "física", "fisica"},
	{"chemistry", "química", "quimica"},
	{"statistic", "estatística", "estadística"},
}

var synonyms = buildSynonyms(synonymGroups)

var weightedKeywords = map[string]int{
	"calculus": 3, "algebra": 3, "programming": 3, "algorithm": 3,
	"physics": 3, "chemistry": 3, "biology": 3, "engineering": 3,
	"cálculo": 3, "álgebra": 3, "programação": 3, "algoritmo": 3,
	"física": 3, "química": 3, "biologia": 3, "engenharia": 3,
	"analysis": 2, "theory": 2, "method": 2, "system": 2,
	"análise": 2, "teoria": 2, "método": 2, "sistema": 2,
	"structure": 2, "function": 2, "process": 2, "model": 2,
	"estrutura": 2, "função": 2, "processo": 2, "modelo": 2,
	"introduction": 1, "basic": 1, "fundamental": 1, "applied": 1,
	"introdução": 1, "básico": 1, "aplicado": 1,
}

func buildSynonyms(groups [][]string) map[string][]string {
	m := make(map[string][]string)
	for _, group := range groups {
		for _, word := range group {
			for _, syn := range group {
				if syn != word {
					m[word] = append(m[word], syn)
				}
			}
		}
	}
	return m
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// Tokenize lowers `text`, splits it on non alphanumeric runes, drops short words and stopwords and stems the rest.
func Tokenize(text, lang string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	})
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) <= 2 || stopwords[lang][w] {
			continue
		}
		tokens = append(tokens, stem(w, lang))
	}
	return tokens
}

func stem(word, lang string) string {
	if lang == "" {
		lang = English
	}
	if lang == English && word == "calculus" {
		return "calcul"
	}
	for _, suffix := range suffixes[lang] {
		if trimmed := strings.TrimSuffix(word, suffix); trimmed != word && len([]rune(trimmed)) > 2 {
			word = trimmed
			break
		}
	}
	if lang == English && len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		word = strings.TrimSuffix(word, "s")
	}
	return word
}

// Text scores two free texts from 0 to 100: exact token overlap 25%, synonym aware matching 40%,
// academic keywords 25% and character trigrams 10%. Texts in different languages lose 5 points.
func Text(a, langA, b, langB string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" && b == "" {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	tokensA, tokensB := Tokenize(a, langA), Tokenize(b, langB)
	score := (jaccard(tokensA, tokensB)*25 +
		semantic(tokensA, tokensB)*40 +
		keywords(a, b)*25 +
		jaccard(ngrams(a), ngrams(b))*10) / 100

	if normLang(langA) != normLang(langB) {
		score -= languagePenalty
	}
	return clamp(score)
}

func normLang(lang string) string {
	if lang == "" {
		return English
	}
	return strings.ToLower(lang)
}

func jaccard(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA, setB := set(a...), set(b...)
	var inter int
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return inter * 100 / union
}

// semantic gives 2 points to a shared token, 1 point to a synonym or a close partial match.
func semantic(a, b []string) int {
	if len(a) == 0 {
		return 0
	}
	inB := set(b...)
	var points int
	for _, t := range a {
		if inB[t] {
			points += 2
			continue
		}
		if hasSynonym(t, inB) || hasPartial(t, b) {
			points++
		}
	}
	return points * 100 / (len(a) * 2)
}

func hasSynonym(token string, in map[string]bool) bool {
	for _, syn := range synonyms[token] {
		if in[syn] {
			return true
		}
	}
	return false
}

// hasPartial matches compound words and close spellings of long tokens.
func hasPartial(token string, others []string) bool {
	if len([]rune(token)) <= 4 {
		return false
	}
	for _, o := range others {
		if len([]rune(o)) <= 4 {
			continue
		}
		if strings.Contains(token, o) || strings.Contains(o, token) {
			return true
		}
		m := difflib.NewMatcher(strings.Split(token, ""), strings.Split(o, ""))
		if m.Ratio() >= partialMatchRate {
			return true
		}
	}
	return false
}

// keywords compares the weighted academic keywords present in each text; 50 when neither has any.
func keywords(a, b string) int {
	wordsA := set(strings.Fields(strings.ToLower(a))...)
	wordsB := set(strings.Fields(strings.ToLower(b))...)
	var matched, total int
	for kw, weight := range weightedKeywords {
		inA, inB := wordsA[kw], wordsB[kw]
		if inA || inB {
			total += weight
			if inA && inB {
				matched += weight
			}
		}
	}
	if total == 0 {
		return 50
	}
	return matched * 100 / total
}

func ngrams(text string) []string {
	var runes []rune
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			runes = append(runes, r)
		}
	}
	if len(runes) < ngramSize {
		return nil
	}
	grams := make([]string, 0, len(runes)-ngramSize+1)
	for i := 0; i+ngramSize <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+ngramSize]))
	}
	return grams
}

// List matches every item with its best counterpart in both directions and averages the scores.
func List(a []string, langA string, b []string, langB string) int {
	if len(a) == 0 && len(b) == 0 {
		return 100
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var total int
	for _, x := range a {
		total += best(x, langA, b, langB)
	}
	for _, y := range b {
		total += best(y, langB, a, langA)
	}
	return total / (len(a) + len(b))
}

func best(item, lang string, candidates []string, candLang string) int {
	var top int
	for _, c := range candidates {
		if s := Text(item, lang, c, candLang); s > top {
			top = s
		}
	}
	return top
}

func clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}
