package rules

import (
	"strings"
	"unicode"

	"github.com/huangsam/evidence/schema"
)

// TriageRules are the content-independent hints used by pass 1, keyed by
// category name as it appears in the rule set.
type TriageRules struct {
	Keywords       map[string][]string           // lowercase filename fragments
	PathHints      map[string][]string           // lowercase directory names
	ExtensionHints map[string]map[string]float64 // extra weight per extension
}

// Built-in hints for the usual academic categories. They are applied only to
// categories of the rule set whose name matches case-insensitively.
var (
	defaultKeywords = map[string][]string{
		"teaching": {
			"syllabus", "assignment", "exam", "quiz", "grading", "rubric", "lesson",
			"course", "student", "grade", "homework", "test",
		},
		"service": {
			"committee", "meeting", "agenda", "minutes", "review", "evaluation", "proposal", "service",
		},
		"scholarship": {
			"research", "paper", "article", "manuscript", "abstract", "publication", "conference",
			"grant", "composition", "arrangement", "drill", "score",
		},
	}
	defaultPathHints = map[string][]string{
		"teaching":    {"teaching", "course", "courses", "class", "syllabi", "syllabus", "assignment", "assignments"},
		"service":     {"service", "committee", "admin", "meeting", "meetings"},
		"scholarship": {"research", "publication", "publications", "manuscript", "manuscripts", "creative", "composition", "compositions"},
	}
	defaultExtensionHints = map[string]map[string]float64{
		"teaching":    {"pptx": 3, "pdf": 1, "docx": 2, "xlsx": 2},
		"scholarship": {"pdf": 3, "docx": 3, "musx": 5, "sib": 5, "3dj": 5, "musicxml": 4},
		"service":     {"pdf": 2, "docx": 2, "xlsx": 2, "pptx": 1},
	}
)

// buildTriage merges configured hints with the built-in ones. A category with
// no keywords at all falls back to the words of its subcategory names.
func buildTriage(doc *Document, cats []Category) TriageRules {
	tr := TriageRules{
		Keywords:       map[string][]string{},
		PathHints:      map[string][]string{},
		ExtensionHints: map[string]map[string]float64{},
	}

	for _, c := range cats {
		key := strings.ToLower(c.Name)

		if kw, ok := lookupFold(doc.Triage.Keywords, c.Name); ok {
			tr.Keywords[c.Name] = lowerAll(kw)
		} else if kw, ok := defaultKeywords[key]; ok {
			tr.Keywords[c.Name] = kw
		} else {
			tr.Keywords[c.Name] = subcategoryWords(c)
		}

		if ph, ok := lookupFold(doc.Triage.PathHints, c.Name); ok {
			tr.PathHints[c.Name] = lowerAll(ph)
		} else if ph, ok := defaultPathHints[key]; ok {
			tr.PathHints[c.Name] = ph
		}

		if eh, ok := lookupFold(doc.Triage.ExtensionHints, c.Name); ok {
			norm := make(map[string]float64, len(eh))
			for ext, w := range eh {
				norm[schema.NormalizeExt(ext)] = w
			}
			tr.ExtensionHints[c.Name] = norm
		} else if eh, ok := defaultExtensionHints[key]; ok {
			tr.ExtensionHints[c.Name] = eh
		}
	}
	return tr
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// subcategoryWords splits subcategory names like "CourseMaterials" or
// "Peer_Review" into lowercase words of at least four letters.
func subcategoryWords(c Category) []string {
	var words []string
	for _, s := range c.Subcategories {
		var cur []rune
		flush := func() {
			if len(cur) >= 4 {
				words = append(words, strings.ToLower(string(cur)))
			}
			cur = cur[:0]
		}
		for i, r := range s.Name {
			switch {
			case !unicode.IsLetter(r):
				flush()
			case unicode.IsUpper(r) && i > 0:
				flush()
				cur = append(cur, r)
			default:
				cur = append(cur, r)
			}
		}
		flush()
	}
	return words
}
