package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Subject is a course name found on a timetable line.
type Subject struct {
	Name string
	// Known is true when Name came from the known-subject list rather than
	// the capitalization heuristic.
	Known bool
}

// SubjectMatcher finds subject names in one timetable segment (the text
// that follows a time marker). Implementations must be safe for concurrent
// use.
type SubjectMatcher interface {
	Subjects(segment string) []Subject
}

// DefaultSubjects is the known-subject list for French secondary-school
// timetable exports.
var DefaultSubjects = []string{
	"PHYSIQUE-CHIMIE",
	"SC.NUMERO.TECNOL.",
	"SCIENCES NUMERIQUES",
	"MATHEMATIQUES",
	"MATHS",
	"FRANCAIS",
	"HISTOIRE-GEOGRAPHIE",
	"HIST.-GEO.",
	"ANGLAIS",
	"ESPAGNOL",
	"ALLEMAND",
	"ITALIEN",
	"LATIN",
	"SVT",
	"SES",
	"EPS",
	"ED.PHYSIQUE & SPORT.",
	"PHILOSOPHIE",
	"NSI",
	"SNT",
	"EMC",
	"ENS. MORAL & CIVIQUE",
	"TECHNOLOGIE",
	"ARTS PLASTIQUES",
	"EDUCATION MUSICALE",
	"MUSIQUE",
	"ACCOMPAGNEMT. PERSO.",
	"VIE DE CLASSE",
}

type knownSubject struct {
	name string
	re   *regexp.Regexp
}

// listMatcher matches a fixed subject list case-insensitively as whole words,
// longest names first so "HISTOIRE-GEOGRAPHIE" is never reported as
// "HISTOIRE". Segments without a known subject go to the heuristic.
type listMatcher struct {
	known     []knownSubject
	heuristic SubjectMatcher
}

// NewSubjectMatcher returns the default matcher: known names first, then
// the capitalized-run heuristic.
func NewSubjectMatcher(names ...string) SubjectMatcher {
	if len(names) == 0 {
		names = DefaultSubjects
	}

	sorted := append([]string(nil), names...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	m := &listMatcher{heuristic: heuristicMatcher{}}
	seen := make(map[string]bool, len(sorted))
	for _, n := range sorted {
		n = strings.TrimSpace(n)
		key := strings.ToUpper(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		m.known = append(m.known, knownSubject{
			name: n,
			re:   regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(` + regexp.QuoteMeta(n) + `)(?:$|[^\pL\pN])`),
		})
	}
	return m
}

func (m *listMatcher) Subjects(segment string) []Subject {
	type hit struct {
		pos  int
		name string
	}

	masked := segment
	var hits []hit
	for _, k := range m.known {
		for {
			loc := k.re.FindStringSubmatchIndex(masked)
			if loc == nil {
				break
			}
			start, end := loc[2], loc[3]
			hits = append(hits, hit{pos: start, name: k.name})
			masked = masked[:start] + strings.Repeat(" ", end-start) + masked[end:]
		}
	}

	if len(hits) == 0 {
		return m.heuristic.Subjects(segment)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]Subject, 0, len(hits))
	for _, h := range hits {
		out = append(out, Subject{Name: h.name, Known: true})
	}
	return out
}

var (
	bracketedRe   = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\{[^}]*\}`)
	roomCodeRe    = regexp.MustCompile(`^[A-Z]{1,2}\d{2,4}[A-Z]?$`)
	timeTokenRe   = regexp.MustCompile(`^\d{1,2}H\d{2}$`)
	initialRe     = regexp.MustCompile(`^\p{Lu}\.$`)
	civilityWords = map[string]bool{"M": true, "MR": true, "MME": true, "MLLE": true, "MRS": true, "MS": true}
)

// heuristicMatcher picks the first run of capitalized words or
// abbreviations, skipping room codes, time tokens, bracketed codes and
// instructor names ("BASSE M.", "M. BASSE", "MME DUPONT").
type heuristicMatcher struct{}

func (heuristicMatcher) Subjects(segment string) []Subject {
	tokens := strings.Fields(bracketedRe.ReplaceAllString(segment, " "))
	excluded := make([]bool, len(tokens))

	for i, tok := range tokens {
		bare := strings.Trim(tok, ",;:")
		switch {
		case timeTokenRe.MatchString(bare), roomCodeRe.MatchString(bare):
			excluded[i] = true
		case civilityWords[strings.TrimSuffix(strings.ToUpper(bare), ".")] && bare != "M.":
			excluded[i] = true
			if i+1 < len(tokens) {
				excluded[i+1] = true
			}
		case initialRe.MatchString(bare):
			excluded[i] = true
			// "M. BASSE" when a surname follows, "BASSE M." otherwise.
			if i+1 < len(tokens) && isNameWord(tokens[i+1]) {
				excluded[i+1] = true
			} else if i > 0 {
				excluded[i-1] = true
			}
		}
	}

	var run []string
	for i, tok := range tokens {
		if !excluded[i] && isCapitalized(tok) {
			run = append(run, tok)
			continue
		}
		if len(run) > 0 {
			break
		}
	}

	name := strings.Trim(strings.Join(run, " "), " -,;:")
	if len([]rune(name)) < 2 {
		return nil
	}
	return []Subject{{Name: name}}
}

// isCapitalized reports whether tok starts with an upper-case letter.
func isCapitalized(tok string) bool {
	for _, r := range tok {
		return unicode.IsUpper(r)
	}
	return false
}

// isNameWord reports whether tok looks like a surname: letters only (plus
// hyphen or apostrophe), capitalized, not a room code.
func isNameWord(tok string) bool {
	if !isCapitalized(tok) || roomCodeRe.MatchString(tok) {
		return false
	}
	for _, r := range tok {
		if !unicode.IsLetter(r) && r != '-' && r != '\'' {
			return false
		}
	}
	return true
}
