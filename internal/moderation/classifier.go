package moderation

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/swapspot/swapspot/internal/observability"
	"github.com/swapspot/swapspot/internal/utils/text"
	"github.com/swapspot/swapspot/resources"
)

const spamPatternsReason = "Contains spam-like patterns"

// Verdict is the classifier output. Reasons is empty iff Flagged is false,
// and its order follows rule order: keywords first, then the pattern reason.
type Verdict struct {
	Flagged bool
	Reasons []string
}

// RuleSet holds the keyword and pattern rules a Classifier runs. Keyword
// matching is substring based on purpose: "cash" inside "cashew" flags. That
// over-reach is a known property of the rules, kept for predictable review
// queues rather than silently switched to word boundaries.
type RuleSet struct {
	Keywords       []string `yaml:"keywords"`
	PhrasePatterns []string `yaml:"phrase_patterns"`
	RepeatRun      int      `yaml:"repeat_run"`
	UppercaseRun   int      `yaml:"uppercase_run"`
}

type Classifier struct {
	keywords     []string
	phrases      []*regexp.Regexp
	repeatRun    int
	uppercaseRun int
}

// LoadRules reads a rule set from path, or the embedded default when path is
// empty.
func LoadRules(path string) (*RuleSet, error) {
	var (
		raw []byte
		err error
	)
	if path == "" {
		raw, err = resources.FS.ReadFile("rules.yml")
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	rules := &RuleSet{}
	if err := yaml.Unmarshal(raw, rules); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(rules.Keywords) == 0 {
		return nil, fmt.Errorf("rules define no keywords")
	}
	if rules.RepeatRun <= 0 || rules.UppercaseRun <= 0 {
		return nil, fmt.Errorf("rules define non-positive run thresholds")
	}
	return rules, nil
}

func NewClassifier(rules *RuleSet) (*Classifier, error) {
	c := &Classifier{
		keywords:     rules.Keywords,
		repeatRun:    rules.RepeatRun,
		uppercaseRun: rules.UppercaseRun,
	}
	for _, pattern := range rules.PhrasePatterns {
		re, err := regexp.Compile(`(?i)` + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
		}
		c.phrases = append(c.phrases, re)
	}
	return c, nil
}

// Classify inspects a title/body pair and reports whether it should be held
// for review. Deterministic and side-effect free.
func (c *Classifier) Classify(ctx context.Context, title, body string) Verdict {
	_, span := otel.Tracer("moderation").Start(ctx, "classify")
	defer span.End()

	done := observability.StartClassification()
	defer done("completed")

	combined := title + " " + body
	lowered := strings.ToLower(text.FoldHomoglyphs(combined))

	var reasons []string
	for _, keyword := range c.keywords {
		if strings.Contains(lowered, keyword) {
			reasons = append(reasons, "Contains suspicious keyword: "+keyword)
		}
	}
	if c.MatchesSpamPatterns(combined) {
		reasons = append(reasons, spamPatternsReason)
	}

	flagged := len(reasons) > 0
	if flagged && observability.Logger != nil {
		observability.Logger.Warn("content flagged",
			zap.Strings("reasons", reasons),
		)
	}

	return Verdict{Flagged: flagged, Reasons: reasons}
}

// MatchesSpamPatterns runs only the pattern rules, which drive the spam
// escalation path independent of keyword hits. The pattern reason is
// reported once no matter how many rules match.
func (c *Classifier) MatchesSpamPatterns(content string) bool {
	for _, re := range c.phrases {
		if re.MatchString(content) {
			return true
		}
	}
	if hasRepeatedRun(content, c.repeatRun) {
		return true
	}
	return hasUppercaseRun(content, c.uppercaseRun)
}

// hasRepeatedRun reports whether the same rune occurs at least n times in a
// row. RE2 has no backreferences, so this replaces the usual `(.)\1{n-1,}`.
func hasRepeatedRun(s string, n int) bool {
	var (
		prev  rune
		count int
	)
	first := true
	for _, r := range s {
		if !first && r == prev {
			count++
		} else {
			count = 1
		}
		if count >= n {
			return true
		}
		prev = r
		first = false
	}
	return false
}

// hasUppercaseRun reports n consecutive ASCII capitals, the `[A-Z]{n,}`
// rule. Deliberately not unicode.IsUpper: the rule targets Latin shouting
// and must not trip on ordinary text in all-caps scripts.
func hasUppercaseRun(s string, n int) bool {
	count := 0
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			count++
			if count >= n {
				return true
			}
		} else {
			count = 0
		}
	}
	return false
}
