// Package enrich attaches candidate web domains to each record, inferred
// from the company name with ordered rule tables.
package enrich

import (
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultMaxPatterns is how many domain patterns are tried per name.
const DefaultMaxPatterns = 5

// Rules are the ordered tables driving name cleanup and domain generation.
// Suffixes are regular expressions anchored at the end of the name and
// applied in order, case-insensitively. Patterns are appended to the
// cleaned stem: ".x" and "-x" verbatim, anything else after a dot.
type Rules struct {
	Suffixes []string `yaml:"suffixes"`
	Patterns []string `yaml:"patterns"`
}

// DefaultRules returns the built-in rule tables.
func DefaultRules() Rules {
	return Rules{
		Suffixes: []string{
			`\s+inc\.?$`,
			`\s+incorporated$`,
			`\s+llc\.?$`,
			`\s+ltd\.?$`,
			`\s+limited$`,
			`\s+corp\.?$`,
			`\s+corporation$`,
			`\s+co\.?$`,
			`\s+company$`,
			`\s+l\.?p\.?$`,
			`\s+lp$`,
			`\s+plc\.?$`,
			`\s+group$`,
			`\s+holdings?$`,
			`\s+ventures?$`,
			`\s+partners?$`,
			`\s+investments?$`,
			`\s+capital$`,
			`\s+fund$`,
			`\s+technologies$`,
			`\s+technology$`,
			`\s+tech$`,
			`\s+solutions?$`,
			`\s+services?$`,
			`\s+enterprises?$`,
			`,?\s+llc\.?$`,
			`,?\s+inc\.?$`,
		},
		Patterns: []string{
			".com", ".io", ".co", ".ai", ".tech", ".bio", "-bio.com", "bio.com",
			".health", ".app", ".dev", ".net", ".org",
		},
	}
}

// LoadRules reads a YAML rules file. A list left empty in the file keeps
// its default.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "enrich: read rules %s", path)
	}
	var file Rules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Rules{}, eris.Wrapf(err, "enrich: parse rules %s", path)
	}
	if len(file.Suffixes) > 0 {
		rules.Suffixes = file.Suffixes
	}
	if len(file.Patterns) > 0 {
		rules.Patterns = file.Patterns
	}
	return rules, nil
}

var (
	// Unicode letters and digits survive; Go's \w is ASCII only.
	disallowed = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Z}-]`)
	separators = regexp.MustCompile(`[\s\p{Z}_]+`)
	hyphens    = regexp.MustCompile(`-+`)
)

// Inferrer generates domain candidates from company names.
// Safe for concurrent use.
type Inferrer struct {
	suffixes    []*regexp.Regexp
	patterns    []string
	maxPatterns int
}

// NewInferrer compiles rules. maxPatterns <= 0 selects DefaultMaxPatterns.
func NewInferrer(rules Rules, maxPatterns int) (*Inferrer, error) {
	if maxPatterns <= 0 {
		maxPatterns = DefaultMaxPatterns
	}
	inf := &Inferrer{
		suffixes:    make([]*regexp.Regexp, 0, len(rules.Suffixes)),
		patterns:    append([]string(nil), rules.Patterns...),
		maxPatterns: maxPatterns,
	}
	for _, s := range rules.Suffixes {
		re, err := regexp.Compile("(?i)" + s)
		if err != nil {
			return nil, eris.Wrapf(err, "enrich: compile suffix %q", s)
		}
		inf.suffixes = append(inf.suffixes, re)
	}
	return inf, nil
}

// PatternsTried is the number of patterns applied to each stem.
func (inf *Inferrer) PatternsTried() int {
	return min(inf.maxPatterns, len(inf.patterns))
}

// Clean reduces a company name to a hyphenated domain stem.
func (inf *Inferrer) Clean(name string) string {
	s := strings.TrimSpace(cases.Lower(language.Und).String(name))
	for _, re := range inf.suffixes {
		s = re.ReplaceAllString(s, "")
	}
	s = disallowed.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	s = hyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Infer returns ordered, distinct domain candidates for name. The result is
// empty, never nil, when the name cleans to nothing.
func (inf *Inferrer) Infer(name string) []string {
	stem := inf.Clean(name)
	if stem == "" {
		return []string{}
	}

	active := inf.patterns[:inf.PatternsTried()]
	domains := make([]string, 0, len(active)+1)
	hasCom := false
	for _, p := range active {
		if p == ".com" {
			hasCom = true
		}
		if strings.HasPrefix(p, ".") || strings.HasPrefix(p, "-") {
			domains = append(domains, stem+p)
		} else {
			domains = append(domains, stem+"."+p)
		}
	}
	if hasCom && strings.Contains(stem, "-") {
		domains = slices.Insert(domains, 1, strings.ReplaceAll(stem, "-", "")+".com")
	}

	seen := make(map[string]bool, len(domains))
	out := domains[:0]
	for _, d := range domains {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

var defaultInferrer, _ = NewInferrer(DefaultRules(), DefaultMaxPatterns)

// CleanCompanyName applies the default rules to name.
func CleanCompanyName(name string) string {
	return defaultInferrer.Clean(name)
}

// InferDomains applies the default rules with the given pattern limit.
func InferDomains(name string, maxPatterns int) []string {
	if maxPatterns <= 0 || maxPatterns == DefaultMaxPatterns {
		return defaultInferrer.Infer(name)
	}
	inf := *defaultInferrer
	inf.maxPatterns = maxPatterns
	return inf.Infer(name)
}
