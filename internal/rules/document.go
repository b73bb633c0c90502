// Package rules loads and compiles the category rules document.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/huangsam/evidence/internal/contract"
	"gopkg.in/yaml.v3"
)

// SubcategoryDoc is one subcategory entry as written in the document.
type SubcategoryDoc struct {
	Any    []string `json:"any" yaml:"any"`
	Bonus  []string `json:"bonus" yaml:"bonus"`
	Weight *float64 `json:"weight" yaml:"weight"`
}

// FileFiltersDoc is the file_filters section.
type FileFiltersDoc struct {
	IncludeExtensions []string `json:"include_extensions" yaml:"include_extensions"`
	ExcludeDirs       []string `json:"exclude_dirs" yaml:"exclude_dirs"`
}

// ScoringDoc is the scoring section.
type ScoringDoc struct {
	HitCap          *int               `json:"hit_cap" yaml:"hit_cap"`
	BonusIncrement  *float64           `json:"bonus_increment" yaml:"bonus_increment"`
	PerHitPoints    *float64           `json:"per_hit_points" yaml:"per_hit_points"`
	CapPerFile      *float64           `json:"cap_per_file" yaml:"cap_per_file"`
	CategoryWeights map[string]float64 `json:"category_weights" yaml:"category_weights"`
	BonusKeywords   map[string]float64 `json:"bonus_keywords" yaml:"bonus_keywords"`
}

// TriageDoc is the triage section.
type TriageDoc struct {
	Keywords       map[string][]string           `json:"keywords" yaml:"keywords"`
	PathHints      map[string][]string           `json:"path_hints" yaml:"path_hints"`
	ExtensionHints map[string]map[string]float64 `json:"extension_hints" yaml:"extension_hints"`
}

// Document is the decoded rules document before compilation.
type Document struct {
	Categories        map[string]map[string]SubcategoryDoc `json:"categories" yaml:"categories"`
	FileFilters       FileFiltersDoc                       `json:"file_filters" yaml:"file_filters"`
	Scoring           ScoringDoc                           `json:"scoring" yaml:"scoring"`
	Triage            TriageDoc                            `json:"triage" yaml:"triage"`
	ExtensionWeights  map[string]float64                   `json:"extension_weights" yaml:"extension_weights"`
	ExtensionHandlers map[string]string                    `json:"extension_handlers" yaml:"extension_handlers"`
	ForceExtract      []string                             `json:"force_extract" yaml:"force_extract"`

	// order holds category and subcategory names in document order.
	order []categoryOrder
}

type categoryOrder struct {
	name string
	subs []string
}

// Load reads a rules document, choosing the decoder from the file extension.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &contract.ConfigError{Field: "rules", Err: err}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return Parse(data, "json")
	case ".yml", ".yaml":
		return Parse(data, "yaml")
	default:
		return nil, contract.NewConfigError("rules", "unsupported config format: %s", path)
	}
}

// Parse decodes a rules document in the given format ("json" or "yaml").
func Parse(data []byte, format string) (*Document, error) {
	doc := &Document{}
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(doc); err != nil {
			return nil, &contract.ConfigError{Field: "rules", Err: fmt.Errorf("invalid JSON: %w", err)}
		}
		if dup := duplicateKey(data); dup != "" {
			return nil, contract.NewConfigError(dup, "duplicate key in JSON document")
		}
		doc.order = sortedOrder(doc.Categories)
	case "yaml":
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, &contract.ConfigError{Field: "rules", Err: fmt.Errorf("invalid YAML: %w", err)}
		}
		if err := root.Decode(doc); err != nil {
			return nil, &contract.ConfigError{Field: "rules", Err: fmt.Errorf("invalid rules shape: %w", err)}
		}
		doc.order = nodeOrder(&root)
		if len(doc.order) == 0 {
			doc.order = sortedOrder(doc.Categories)
		}
	default:
		return nil, contract.NewConfigError("rules", "unsupported config format: %s", format)
	}
	return doc, nil
}

// duplicateKey walks the JSON token stream and returns the dotted path of the
// first key repeated within one object, or "" when every key is unique.
func duplicateKey(data []byte) string {
	dec := json.NewDecoder(bytes.NewReader(data))
	var walk func(path []string) (string, error)
	walk = func(path []string) (string, error) {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			return "", nil
		}
		switch delim {
		case '{':
			seen := make(map[string]bool)
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return "", err
				}
				key, _ := kt.(string)
				child := append(slices.Clone(path), key)
				if seen[key] {
					return strings.Join(child, "."), nil
				}
				seen[key] = true
				if dup, err := walk(child); dup != "" || err != nil {
					return dup, err
				}
			}
		case '[':
			for dec.More() {
				if dup, err := walk(path); dup != "" || err != nil {
					return dup, err
				}
			}
		}
		// Closing delimiter.
		_, err = dec.Token()
		return "", err
	}
	dup, _ := walk(nil)
	return dup
}

// sortedOrder orders categories lexically, used when the source has no key order.
func sortedOrder(cats map[string]map[string]SubcategoryDoc) []categoryOrder {
	names := make([]string, 0, len(cats))
	for name := range cats {
		names = append(names, name)
	}
	slices.Sort(names)

	order := make([]categoryOrder, 0, len(names))
	for _, name := range names {
		subs := make([]string, 0, len(cats[name]))
		for sub := range cats[name] {
			subs = append(subs, sub)
		}
		slices.Sort(subs)
		order = append(order, categoryOrder{name: name, subs: subs})
	}
	return order
}

// nodeOrder walks the YAML tree to recover the key order of the categories mapping.
func nodeOrder(root *yaml.Node) []categoryOrder {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil
	}

	var cats *yaml.Node
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "categories" {
			cats = doc.Content[i+1]
			break
		}
	}
	if cats == nil || cats.Kind != yaml.MappingNode {
		return nil
	}

	var order []categoryOrder
	for i := 0; i+1 < len(cats.Content); i += 2 {
		co := categoryOrder{name: cats.Content[i].Value}
		if subs := cats.Content[i+1]; subs.Kind == yaml.MappingNode {
			for j := 0; j+1 < len(subs.Content); j += 2 {
				co.subs = append(co.subs, subs.Content[j].Value)
			}
		}
		order = append(order, co)
	}
	return order
}
