package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/huangsam/evidence/internal/contract"
	"github.com/huangsam/evidence/schema"
)

// Scoring defaults.
const (
	DefaultHitCap         = 50
	DefaultBonusIncrement = 1.0
	DefaultWeight         = 1.0
)

// BonusTerm is a compiled bonus phrase.
type BonusTerm struct {
	Term   string
	Points float64
	re     *regexp.Regexp
}

// Count returns the number of occurrences of the term in normalized text.
func (b BonusTerm) Count(text string) int {
	return len(b.re.FindAllStringIndex(text, -1))
}

// Index returns the byte offset of the first occurrence, or -1.
func (b BonusTerm) Index(text string) int {
	loc := b.re.FindStringIndex(text)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// Subcategory is a compiled subcategory rule.
type Subcategory struct {
	Name     string
	Patterns []*regexp.Regexp
	Bonus    []BonusTerm
	Weight   float64
}

// Category is a compiled category with its subcategories in document order.
type Category struct {
	Name          string
	Weight        float64 // multiplier from scoring.category_weights, default 1
	Subcategories []Subcategory
}

// RuleSet is the immutable compiled form of a rules document.
type RuleSet struct {
	Categories  []Category
	HitCap      int
	ScoreCap    float64 // 0 means uncapped
	GlobalBonus []BonusTerm
	Policy      *ExtensionPolicy
	Triage      TriageRules
	ExcludeDirs []string
	digest      string
}

// Digest returns a stable hash of the compiled rules.
func (rs *RuleSet) Digest() string { return rs.digest }

// CategoryNames returns the category names in order.
func (rs *RuleSet) CategoryNames() []string {
	names := make([]string, 0, len(rs.Categories))
	for _, c := range rs.Categories {
		names = append(names, c.Name)
	}
	return names
}

// CheckSelection rejects category names that are neither a rule category
// nor the misc bucket.
func (rs *RuleSet) CheckSelection(names []string) error {
	known := append(rs.CategoryNames(), schema.MiscCategory)
	for _, name := range names {
		if !schema.FoldContains(known, name) {
			return contract.NewConfigError("categories", "unknown category %q (known: %s)", name, strings.Join(known, ", "))
		}
	}
	return nil
}

// Restrict returns a RuleSet limited to the named categories (case-insensitive).
// Selecting misc keeps every category since misc candidates have none of their own.
func (rs *RuleSet) Restrict(names []string) *RuleSet {
	if len(names) == 0 || schema.FoldContains(names, schema.MiscCategory) {
		return rs
	}
	var kept []Category
	for _, c := range rs.Categories {
		if schema.FoldContains(names, c.Name) {
			kept = append(kept, c)
		}
	}
	clone := *rs
	clone.Categories = kept
	return &clone
}

// LoadAndCompile loads the document at path and compiles it.
func LoadAndCompile(path string) (*RuleSet, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Compile(doc)
}

// Compile validates a document and compiles every pattern case-insensitively.
// Identical documents always yield identical rule sets.
func Compile(doc *Document) (*RuleSet, error) {
	if len(doc.Categories) == 0 {
		return nil, contract.NewConfigError("categories", "at least one category is required")
	}

	rs := &RuleSet{HitCap: DefaultHitCap}
	bonusIncrement := DefaultBonusIncrement
	defaultWeight := DefaultWeight

	sc := doc.Scoring
	if sc.HitCap != nil {
		if *sc.HitCap <= 0 {
			return nil, contract.NewConfigError("scoring.hit_cap", "must be positive (received %d)", *sc.HitCap)
		}
		rs.HitCap = *sc.HitCap
	}
	if sc.BonusIncrement != nil {
		if *sc.BonusIncrement < 0 {
			return nil, contract.NewConfigError("scoring.bonus_increment", "cannot be negative")
		}
		bonusIncrement = *sc.BonusIncrement
	}
	if sc.PerHitPoints != nil {
		if *sc.PerHitPoints < 0 {
			return nil, contract.NewConfigError("scoring.per_hit_points", "cannot be negative")
		}
		defaultWeight = *sc.PerHitPoints
	}
	if sc.CapPerFile != nil {
		if *sc.CapPerFile < 0 {
			return nil, contract.NewConfigError("scoring.cap_per_file", "cannot be negative")
		}
		rs.ScoreCap = *sc.CapPerFile
	}

	for _, co := range doc.order {
		subs := doc.Categories[co.name]
		cat := Category{Name: co.name, Weight: 1}
		if w, ok := lookupFold(sc.CategoryWeights, co.name); ok {
			if w < 0 {
				return nil, contract.NewConfigError("scoring.category_weights", "weight for %s cannot be negative", co.name)
			}
			cat.Weight = w
		}
		if len(subs) == 0 {
			return nil, contract.NewConfigError("categories."+co.name, "category has no subcategories")
		}

		seen := map[string]struct{}{}
		for _, subName := range co.subs {
			field := "categories." + co.name + "." + subName
			key := strings.ToLower(subName)
			if _, dup := seen[key]; dup {
				return nil, contract.NewConfigError(field, "duplicate subcategory name")
			}
			seen[key] = struct{}{}

			sub, err := compileSubcategory(field, subName, subs[subName], defaultWeight, bonusIncrement)
			if err != nil {
				return nil, err
			}
			cat.Subcategories = append(cat.Subcategories, sub)
		}
		rs.Categories = append(rs.Categories, cat)
	}

	terms := make([]string, 0, len(sc.BonusKeywords))
	for term := range sc.BonusKeywords {
		terms = append(terms, term)
	}
	slices.Sort(terms)
	for _, term := range terms {
		points := sc.BonusKeywords[term]
		if points < 0 {
			return nil, contract.NewConfigError("scoring.bonus_keywords", "points for %q cannot be negative", term)
		}
		rs.GlobalBonus = append(rs.GlobalBonus, newBonusTerm(term, points))
	}

	policy, err := buildPolicy(doc)
	if err != nil {
		return nil, err
	}
	rs.Policy = policy
	rs.ExcludeDirs = slices.Clone(doc.FileFilters.ExcludeDirs)
	rs.Triage = buildTriage(doc, rs.Categories)
	rs.digest = digest(rs)
	return rs, nil
}

func compileSubcategory(field, name string, sd SubcategoryDoc, defaultWeight, bonusIncrement float64) (Subcategory, error) {
	sub := Subcategory{Name: name, Weight: defaultWeight}
	if sd.Weight != nil {
		if *sd.Weight < 0 {
			return sub, contract.NewConfigError(field, "weight cannot be negative (received %g)", *sd.Weight)
		}
		sub.Weight = *sd.Weight
	}
	if len(sd.Any) == 0 && len(sd.Bonus) == 0 {
		return sub, contract.NewConfigError(field, "subcategory needs at least one pattern")
	}
	for _, p := range sd.Any {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return sub, &contract.ConfigError{Field: field, Err: fmt.Errorf("pattern %q: %w", p, err)}
		}
		sub.Patterns = append(sub.Patterns, re)
	}
	for _, term := range sd.Bonus {
		if strings.TrimSpace(term) == "" {
			continue
		}
		sub.Bonus = append(sub.Bonus, newBonusTerm(term, bonusIncrement))
	}
	return sub, nil
}

// newBonusTerm matches the term literally, with any run of spaces in the term
// matching a single normalized space.
func newBonusTerm(term string, points float64) BonusTerm {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return BonusTerm{
		Term:   term,
		Points: points,
		re:     regexp.MustCompile(`(?i)` + strings.Join(words, ` `)),
	}
}

func buildPolicy(doc *Document) (*ExtensionPolicy, error) {
	policy := DefaultPolicy()

	for ext, tag := range doc.ExtensionHandlers {
		handler := schema.HandlerTag(strings.ToLower(tag))
		if _, ok := schema.ValidHandlerTags[handler]; !ok {
			return nil, contract.NewConfigError("extension_handlers", "unknown handler %q for %s", tag, ext)
		}
		norm := schema.NormalizeExt(ext)
		r := policy.rules[norm]
		r.Handler = handler
		policy.rules[norm] = r
		policy.allow[norm] = struct{}{}
	}
	for ext, w := range doc.ExtensionWeights {
		if w < 0 {
			return nil, contract.NewConfigError("extension_weights", "weight for %s cannot be negative", ext)
		}
		norm := schema.NormalizeExt(ext)
		r := policy.rules[norm]
		r.Weight = w
		policy.rules[norm] = r
	}
	for _, ext := range doc.ForceExtract {
		norm := schema.NormalizeExt(ext)
		r := policy.rules[norm]
		r.Force = true
		policy.rules[norm] = r
	}
	if len(doc.FileFilters.IncludeExtensions) > 0 {
		policy = policy.WithAllowList(doc.FileFilters.IncludeExtensions)
	}
	return policy, nil
}

// digest hashes a canonical rendering of the rule set.
func digest(rs *RuleSet) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "cap=%d;scorecap=%g\n", rs.HitCap, rs.ScoreCap)
	for _, c := range rs.Categories {
		_, _ = fmt.Fprintf(h, "c:%s:%g\n", c.Name, c.Weight)
		for _, s := range c.Subcategories {
			_, _ = fmt.Fprintf(h, " s:%s:%g\n", s.Name, s.Weight)
			for _, p := range s.Patterns {
				_, _ = fmt.Fprintf(h, "  p:%s\n", p.String())
			}
			for _, b := range s.Bonus {
				_, _ = fmt.Fprintf(h, "  b:%s:%g\n", b.Term, b.Points)
			}
		}
	}
	for _, b := range rs.GlobalBonus {
		_, _ = fmt.Fprintf(h, "g:%s:%g\n", b.Term, b.Points)
	}
	for _, ext := range rs.Policy.Extensions() {
		r, _ := rs.Policy.Lookup(ext)
		_, _ = fmt.Fprintf(h, "e:%s:%g:%s:%t\n", ext, r.Weight, r.Handler, r.Force)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func lookupFold[V any](m map[string]V, key string) (V, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	var zero V
	return zero, false
}
