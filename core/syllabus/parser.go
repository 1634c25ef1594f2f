package syllabus

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/subject"
)

var ErrEmpty = core.NewValidationError(errors.New("syllabus text is empty"))

type section int

const (
	secNone section = iota
	secDescription
	secObjectives
	secContent
	secMethodology
	secEvaluation
	secBibliographyBasic
	secBibliographyComplementary
	secPrerequisites
	secWeekly
	secKeywords
	secWorkload
)

// scoredSections count towards the extraction confidence.
var scoredSections = []section{
	secDescription, secObjectives, secContent, secMethodology,
	secEvaluation, secBibliographyBasic, secBibliographyComplementary, secPrerequisites,
}

var headings = map[string]section{
	"ementa":                        secDescription,
	"descrição":                     secDescription,
	"descricao":                     secDescription,
	"description":                   secDescription,
	"course description":            secDescription,
	"summary":                       secDescription,
	"syllabus":                      secDescription,
	"objetivo":                      secObjectives,
	"objetivos":                     secObjectives,
	"objetivos gerais":              secObjectives,
	"objetivos específicos":         secObjectives,
	"objective":                     secObjectives,
	"objectives":                    secObjectives,
	"learning objectives":           secObjectives,
	"conteúdo programático":         secContent,
	"conteudo programatico":         secContent,
	"conteúdo":                      secContent,
	"programa":                      secContent,
	"content":                       secContent,
	"contents":                      secContent,
	"course content":                secContent,
	"topics":                        secContent,
	"program":                       secContent,
	"metodologia":                   secMethodology,
	"metodologia de ensino":         secMethodology,
	"procedimentos metodológicos":   secMethodology,
	"methodology":                   secMethodology,
	"teaching methods":              secMethodology,
	"teaching methodology":          secMethodology,
	"avaliação":                     secEvaluation,
	"avaliacao":                     secEvaluation,
	"critérios de avaliação":        secEvaluation,
	"sistema de avaliação":          secEvaluation,
	"evaluation":                    secEvaluation,
	"assessment":                    secEvaluation,
	"grading":                       secEvaluation,
	"bibliografia":                  secBibliographyBasic,
	"bibliografia básica":           secBibliographyBasic,
	"bibliografia basica":           secBibliographyBasic,
	"bibliography":                  secBibliographyBasic,
	"basic bibliography":            secBibliographyBasic,
	"references":                    secBibliographyBasic,
	"required reading":              secBibliographyBasic,
	"bibliografia complementar":     secBibliographyComplementary,
	"complementary bibliography":    secBibliographyComplementary,
	"additional references":         secBibliographyComplementary,
	"further reading":               secBibliographyComplementary,
	"pré-requisitos":                secPrerequisites,
	"pre-requisitos":                secPrerequisites,
	"pré-requisito":                 secPrerequisites,
	"requisitos":                    secPrerequisites,
	"prerequisites":                 secPrerequisites,
	"pre-requisites":                secPrerequisites,
	"prerequisite":                  secPrerequisites,
	"cronograma":                    secWeekly,
	"programa semanal":              secWeekly,
	"weekly program":                secWeekly,
	"weekly schedule":               secWeekly,
	"schedule":                      secWeekly,
	"palavras-chave":                secKeywords,
	"palavras chave":                secKeywords,
	"keywords":                      secKeywords,
	"key words":                     secKeywords,
	"distribuição da carga horária": secWorkload,
	"workload distribution":         secWorkload,
}

type field int

const (
	fieldTitle field = iota
	fieldCode
	fieldWorkload
	fieldCredits
)

var metadataKeys = map[string]field{
	"disciplina":    fieldTitle,
	"matéria":       fieldTitle,
	"materia":       fieldTitle,
	"nome":          fieldTitle,
	"título":        fieldTitle,
	"titulo":        fieldTitle,
	"subject":       fieldTitle,
	"name":          fieldTitle,
	"title":         fieldTitle,
	"código":        fieldCode,
	"codigo":        fieldCode,
	"sigla":         fieldCode,
	"code":          fieldCode,
	"carga horária": fieldWorkload,
	"carga horaria": fieldWorkload,
	"ch":            fieldWorkload,
	"workload":      fieldWorkload,
	"hours":         fieldWorkload,
	"horas":         fieldWorkload,
	"créditos":      fieldCredits,
	"creditos":      fieldCredits,
	"credits":       fieldCredits,
	"cr":            fieldCredits,
}

var (
	numberingRe = regexp.MustCompile(`^(?:#+\s*|\d+(?:\.\d+)*[.)]?\s+|[IVX]+[.)]\s+)`)
	bulletRe    = regexp.MustCompile(`^(?:[-*•·]|\(?\d+(?:\.\d+)+\.?|\(?\d+[.)]|\(?[a-z][.)]|\(?[ivxIVX]+[.)])\s+`)
	numberRe    = regexp.MustCompile(`\d+`)
	codeRe      = regexp.MustCompile(`\b([A-Z]{2,4}\d{3,4})\b`)
	hoursRe     = regexp.MustCompile(`(?i)(\d+)\s*(?:horas|hours|hrs|h)\b`)

	theoryRe    = regexp.MustCompile(`(?i)(?:te[óo]ric[ao]s?|theory|theoretical)\s*[:=-]?\s*(\d+)`)
	practicalRe = regexp.MustCompile(`(?i)(?:pr[áa]tic[ao]s?|practical|practice)\s*[:=-]?\s*(\d+)`)
	labRe       = regexp.MustCompile(`(?i)(?:laborat[óo]rio|laboratory|lab)\s*[:=-]?\s*(\d+)`)

	unitRe      = regexp.MustCompile(`(?i)^(?:unidade|unit|m[óo]dulo|module|cap[íi]tulo|chapter)\s+[0-9ivx]+\s*[-–:.)]?\s*(.*)$`)
	topNumRe    = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
	unitHoursRe = regexp.MustCompile(`(?i)\(\s*(\d+)\s*(?:h|hs|horas|hours)\s*\)`)
	weekRe      = regexp.MustCompile(`(?i)^(?:semana|week|aula|class)?\s*(\d+)\s*[-–:.)]?\s+(.+)$`)

	noneRe    = regexp.MustCompile(`(?i)^(?:n[ãa]o(?: h[áa])?|none|nenhum|nenhuma|n/a|-|sem pr[ée]-?requisitos?|no prerequisites?)\.?$`)
	orRe      = regexp.MustCompile(`(?i)\b(?:or|ou|either)\b`)
	minimumRe = regexp.MustCompile(`(?i)(?:at least|pelo menos|m[íi]nimo de|minimum of)\s+(\d+)`)
	creditsRe = regexp.MustCompile(`(?i)(\d+)\s*(?:cr[ée]ditos|credits)`)
)

type parser struct {
	current  section
	preamble []string
	sections map[section][]string
	found    map[section]bool
	meta     map[field]string
}

// Parse extracts the structure of a syllabus written in english or portuguese.
func Parse(text string) (Document, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return Document{}, ErrEmpty
	}

	p := &parser{
		sections: make(map[section][]string),
		found:    make(map[section]bool),
		meta:     make(map[field]string),
	}
	for _, line := range strings.Split(text, "\n") {
		p.line(line)
	}

	doc := p.document()
	doc.Language = detectLanguage(text)
	doc.SubjectType = classifyNature(text)
	doc.KnowledgeArea = classifyArea(text, doc.Keywords, topicsOf(doc.TopicUnits))
	if len(doc.Keywords) == 0 {
		doc.Keywords = extractKeywords(doc)
	}
	doc.QualityScore = qualityScore(doc)
	doc.ExtractionConfidence = p.confidence()

	hash, err := core.ContentHash(doc.Content())
	if err != nil {
		return Document{}, errors.Wrap(err, "hashing syllabus content")
	}
	doc.ContentHash = hash
	return doc, nil
}

// normalize reduces a candidate heading to its lookup key.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = numberingRe.ReplaceAllString(s, "")
	s = strings.Trim(s, "*_: \t")
	return strings.ToLower(s)
}

func (p *parser) line(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}

	if key, value, ok := strings.Cut(line, ":"); ok {
		k := normalize(key)
		if f, ok := metadataKeys[k]; ok {
			if _, seen := p.meta[f]; !seen {
				p.meta[f] = strings.TrimSpace(value)
			}
			if f == fieldWorkload {
				p.sections[secWorkload] = append(p.sections[secWorkload], value)
			}
			return
		}
		if s, ok := headings[k]; ok {
			p.start(s)
			if v := strings.TrimSpace(value); v != "" {
				p.sections[s] = append(p.sections[s], v)
			}
			return
		}
	}
	if s, ok := headings[normalize(line)]; ok {
		p.start(s)
		return
	}

	if p.current == secNone {
		p.preamble = append(p.preamble, line)
		return
	}
	p.sections[p.current] = append(p.sections[p.current], line)
}

func (p *parser) start(s section) {
	p.current = s
	p.found[s] = true
}

func (p *parser) confidence() float64 {
	found := 0
	for _, s := range scoredSections {
		if p.found[s] {
			found++
		}
	}
	ratio := float64(found) / float64(len(scoredSections))
	return float64(int(ratio*100+.5)) / 100
}

func (p *parser) document() Document {
	doc := Document{
		Title:                     strings.TrimSpace(p.meta[fieldTitle]),
		Code:                      strings.ToUpper(strings.TrimSpace(p.meta[fieldCode])),
		Credits:                   firstNumber(p.meta[fieldCredits]),
		Description:               strings.Join(p.sections[secDescription], " "),
		Objectives:                listItems(p.sections[secObjectives]),
		Methodologies:             listItems(p.sections[secMethodology]),
		EvaluationMethods:         listItems(p.sections[secEvaluation]),
		BibliographyBasic:         listItems(p.sections[secBibliographyBasic]),
		BibliographyComplementary: listItems(p.sections[secBibliographyComplementary]),
		TopicUnits:                topicUnits(p.sections[secContent]),
		WeeklyProgram:             weeklyProgram(p.sections[secWeekly]),
		PrerequisiteTexts:         prerequisiteTexts(p.sections[secPrerequisites]),
	}
	doc.PrerequisiteGroups = prerequisiteGroups(doc.PrerequisiteTexts)

	for _, l := range p.sections[secKeywords] {
		for _, kw := range strings.FieldsFunc(l, func(r rune) bool { return r == ',' || r == ';' }) {
			doc.Keywords = append(doc.Keywords, strings.ToLower(strings.TrimSpace(kw)))
		}
	}
	doc.Keywords = core.CleanStrings(doc.Keywords)

	// the first preamble line is the title, optionally prefixed by the code
	if len(p.preamble) > 0 {
		first := p.preamble[0]
		if doc.Code == "" {
			doc.Code = codeRe.FindString(first)
		}
		if doc.Title == "" {
			title := strings.Replace(first, doc.Code, "", 1)
			doc.Title = strings.Trim(title, " -–:|")
		}
	}

	p.workload(&doc)
	return doc
}

func (p *parser) workload(doc *Document) {
	for _, l := range p.sections[secWorkload] {
		if m := theoryRe.FindStringSubmatch(l); m != nil && doc.Workload.Theoretical == 0 {
			doc.Workload.Theoretical = firstNumber(m[1])
		}
		if m := practicalRe.FindStringSubmatch(l); m != nil && doc.Workload.Practical == 0 {
			doc.Workload.Practical = firstNumber(m[1])
		}
		if m := labRe.FindStringSubmatch(l); m != nil && doc.Workload.Lab == 0 {
			doc.Workload.Lab = firstNumber(m[1])
		}
	}

	doc.WorkloadHours = firstNumber(p.meta[fieldWorkload])
	if doc.WorkloadHours == 0 {
		doc.WorkloadHours = doc.Workload.Theoretical + doc.Workload.Practical + doc.Workload.Lab
	}
	if doc.WorkloadHours == 0 {
		for _, l := range p.preamble {
			if m := hoursRe.FindStringSubmatch(l); m != nil {
				doc.WorkloadHours = firstNumber(m[1])
				break
			}
		}
	}
}

func firstNumber(s string) uint64 {
	n, _ := strconv.ParseUint(numberRe.FindString(s), 10, 64)
	return n
}

// listItems strips list markers. Once a section uses markers, unmarked lines continue the previous item.
func listItems(lines []string) []string {
	var (
		items  []string
		marked bool
	)
	for _, l := range lines {
		stripped := bulletRe.ReplaceAllString(l, "")
		switch {
		case stripped != l:
			marked = true
			items = append(items, stripped)
		case !marked || len(items) == 0:
			items = append(items, stripped)
		default:
			items[len(items)-1] += " " + stripped
		}
	}
	return core.CleanStrings(items)
}

func topicUnits(lines []string) []subject.TopicUnit {
	var units []subject.TopicUnit
	for _, l := range lines {
		title, isUnit := "", false
		if m := unitRe.FindStringSubmatch(l); m != nil {
			title, isUnit = m[1], true
		} else if m := topNumRe.FindStringSubmatch(l); m != nil {
			title, isUnit = m[1], true
		}

		if isUnit {
			u := subject.TopicUnit{Topics: []string{}}
			if m := unitHoursRe.FindStringSubmatch(title); m != nil {
				u.Hours = firstNumber(m[1])
				title = unitHoursRe.ReplaceAllString(title, "")
			}
			u.Title = strings.TrimSpace(title)
			units = append(units, u)
			continue
		}

		if len(units) == 0 {
			units = append(units, subject.TopicUnit{Topics: []string{}})
		}
		last := &units[len(units)-1]
		for _, topic := range strings.Split(bulletRe.ReplaceAllString(l, ""), ";") {
			if topic = strings.TrimSpace(topic); topic != "" {
				last.Topics = append(last.Topics, topic)
			}
		}
	}
	return units
}

func topicsOf(units []subject.TopicUnit) []string {
	var topics []string
	for _, u := range units {
		if u.Title != "" {
			topics = append(topics, u.Title)
		}
		topics = append(topics, u.Topics...)
	}
	return topics
}

func weeklyProgram(lines []string) []WeeklyEntry {
	var entries []WeeklyEntry
	for _, l := range lines {
		m := weekRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		week, _ := strconv.Atoi(m[1])
		entries = append(entries, WeeklyEntry{Week: week, Topic: strings.TrimSpace(m[2])})
	}
	return entries
}

func prerequisiteTexts(lines []string) []string {
	var texts []string
	for _, l := range lines {
		for _, t := range strings.Split(bulletRe.ReplaceAllString(l, ""), ";") {
			texts = append(texts, t)
		}
	}
	return core.CleanStrings(texts)
}

// prerequisiteGroups turns each prerequisite text into a group of subject codes:
// alternatives become ANY, "at least N" becomes MINIMUM, anything else ALL.
// Texts that only say there are none produce a single NONE group.
func prerequisiteGroups(texts []string) []subject.NewPrerequisiteGroup {
	groups := []subject.NewPrerequisiteGroup{}
	none := false
	for _, text := range texts {
		if noneRe.MatchString(text) {
			none = true
			continue
		}
		codes := core.CleanStrings(codeRe.FindAllString(strings.ToUpper(text), -1))
		if len(codes) == 0 {
			continue
		}

		g := subject.NewPrerequisiteGroup{GroupType: subject.GroupAll, Logic: subject.LogicAnd, SubjectIDs: codes}
		if m := minimumRe.FindStringSubmatch(text); m != nil {
			g.GroupType = subject.GroupMinimum
			if c := creditsRe.FindStringSubmatch(text); c != nil {
				g.MinimumCredits = firstNumber(c[1])
			} else {
				g.MinimumCompletedSubjects = firstNumber(m[1])
			}
		} else if len(codes) > 1 && orRe.MatchString(text) {
			g.GroupType = subject.GroupAny
		}
		groups = append(groups, g)
	}
	if len(groups) == 0 && none {
		groups = append(groups, subject.NewPrerequisiteGroup{
			GroupType: subject.GroupNone, Logic: subject.LogicAnd, SubjectIDs: []string{},
		})
	}
	return groups
}
