package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/formpipe/formpipe/internal/entity"
)

// familyRules is the on-disk shape of one pattern file: a form family plus
// its ordered rule list.
type familyRules struct {
	Family string               `toml:"family"`
	Rules  []entity.PatternRule `toml:"rules"`
}

type compiledRule struct {
	rule   entity.PatternRule
	expr   *regexp.Regexp
	schema *jsonschema.Schema
}

// RuleSet holds compiled deterministic pattern rules per form family.
// Rules are static for the process lifetime and evaluated in declared
// order; the first match wins.
type RuleSet struct {
	byFamily map[string][]compiledRule
}

// NewRuleSet compiles rules grouped by family. Compilation failures are
// configuration defects and reported eagerly.
func NewRuleSet(families map[string][]entity.PatternRule) (*RuleSet, error) {
	set := &RuleSet{byFamily: make(map[string][]compiledRule)}
	for family, rules := range families {
		for i, rule := range rules {
			expr, err := regexp.Compile(rule.Match)
			if err != nil {
				return nil, fmt.Errorf("family %q rule %d: compile %q: %w", family, i, rule.Match, err)
			}
			cr := compiledRule{rule: rule, expr: expr}
			if len(rule.Validation) > 0 {
				schema, err := compileConstraints(rule.Validation)
				if err != nil {
					return nil, fmt.Errorf("family %q rule %d: validation: %w", family, i, err)
				}
				cr.schema = schema
			}
			set.byFamily[family] = append(set.byFamily[family], cr)
		}
	}
	return set, nil
}

// LoadRuleDir reads every *.toml pattern file under dir. A missing
// directory yields an empty set: pattern rules are optional per family.
func LoadRuleDir(dir string, logger *slog.Logger) (*RuleSet, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("mapping.patterns.no_dir", "dir", dir)
			return NewRuleSet(nil)
		}
		return nil, fmt.Errorf("read pattern dir %q: %w", dir, err)
	}

	families := make(map[string][]entity.PatternRule)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".toml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read pattern file %q: %w", e.Name(), err)
		}
		var fr familyRules
		if err := toml.Unmarshal(data, &fr); err != nil {
			return nil, fmt.Errorf("parse pattern file %q: %w", e.Name(), err)
		}
		family := fr.Family
		if family == "" {
			family = strings.TrimSuffix(e.Name(), ".toml")
		}
		families[family] = append(families[family], fr.Rules...)
		logger.Info("mapping.patterns.loaded", "file", e.Name(), "family", family, "rules", len(fr.Rules))
	}
	return NewRuleSet(families)
}

// Match evaluates the family's rules in order against the detected field
// name. The returned rule's canonical target is authoritative and cannot
// be overridden by learned history.
func (s *RuleSet) Match(family, detected string) (*entity.PatternRule, bool) {
	for _, cr := range s.byFamily[family] {
		if cr.expr.MatchString(detected) {
			rule := cr.rule
			return &rule, true
		}
	}
	return nil, false
}

// ValidateValue checks a (transformed) raw value against the matched
// rule's validation constraints, when any were declared.
func (s *RuleSet) ValidateValue(family string, rule *entity.PatternRule, value string) error {
	for _, cr := range s.byFamily[family] {
		if cr.rule.Match == rule.Match && cr.rule.Canonical == rule.Canonical {
			if cr.schema == nil {
				return nil
			}
			return cr.schema.Validate(value)
		}
	}
	return nil
}

// compileConstraints wraps a rule's constraint map into a string schema.
func compileConstraints(constraints map[string]any) (*jsonschema.Schema, error) {
	doc := map[string]any{"type": "string"}
	for k, v := range constraints {
		doc[k] = v
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal constraints: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rule.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add constraints: %w", err)
	}
	return compiler.Compile("rule.json")
}

// Known value transforms. Unknown names pass the value through unchanged.
var transforms = map[string]func(string) string{
	"trim":  strings.TrimSpace,
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"digits": func(s string) string {
		var b strings.Builder
		for _, r := range s {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		return b.String()
	},
	"collapse_ws": func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	},
}

// ApplyTransform runs a rule's named value transform over raw text.
func ApplyTransform(name, value string) string {
	if fn, ok := transforms[name]; ok {
		return fn(value)
	}
	return value
}
