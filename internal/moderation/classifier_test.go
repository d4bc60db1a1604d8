package moderation

import (
	"context"
	"reflect"
	"testing"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	c, err := NewClassifier(rules)
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	return c
}

func TestClassifyFlagsKeywords(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(t)

	verdict := c.Classify(context.Background(), "SELL my phone", "for cash")
	if !verdict.Flagged {
		t.Fatal("expected flagged verdict")
	}
	want := []string{
		"Contains suspicious keyword: sell",
		"Contains suspicious keyword: cash",
	}
	if !reflect.DeepEqual(verdict.Reasons, want) {
		t.Fatalf("reasons = %v, want %v", verdict.Reasons, want)
	}
}

func TestClassifyCleanContent(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(t)

	for _, content := range []string{
		"Trade my bike for a skateboard",
		"Looking for a kayak",
	} {
		verdict := c.Classify(context.Background(), content, "")
		if verdict.Flagged {
			t.Errorf("%q flagged with reasons %v", content, verdict.Reasons)
		}
		if len(verdict.Reasons) != 0 {
			t.Errorf("%q produced reasons %v on a clean verdict", content, verdict.Reasons)
		}
	}
}

func TestClassifyPatternReasonReportedOnce(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(t)

	// Hits two phrase patterns plus the "money" keyword.
	verdict := c.Classify(context.Background(), "CLICK HERE", "for free money")
	if !verdict.Flagged {
		t.Fatal("expected flagged verdict")
	}
	patternReasons := 0
	for _, reason := range verdict.Reasons {
		if reason == spamPatternsReason {
			patternReasons++
		}
	}
	if patternReasons != 1 {
		t.Fatalf("pattern reason appeared %d times, want 1: %v", patternReasons, verdict.Reasons)
	}
	if verdict.Reasons[len(verdict.Reasons)-1] != spamPatternsReason {
		t.Fatalf("pattern reason must come after keyword reasons: %v", verdict.Reasons)
	}
}

func TestClassifyFoldsLookalikeLetters(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(t)

	// "sеll" and "саsh" use Cyrillic lookalike letters.
	verdict := c.Classify(context.Background(), "sеll my phone", "саsh only")
	if !verdict.Flagged {
		t.Fatal("disguised keywords slipped through")
	}
	want := []string{
		"Contains suspicious keyword: sell",
		"Contains suspicious keyword: cash",
	}
	if !reflect.DeepEqual(verdict.Reasons, want) {
		t.Fatalf("reasons = %v, want %v", verdict.Reasons, want)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(t)

	first := c.Classify(context.Background(), "Buy cheap", "act now $$$")
	second := c.Classify(context.Background(), "Buy cheap", "act now $$$")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("classification not stable: %v vs %v", first, second)
	}
}

func TestMatchesSpamPatterns(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(t)

	cases := []struct {
		content string
		want    bool
	}{
		{"free money", true},
		{"FREE MONEY", true},
		{"click here to claim your prize", true},
		{"hiiiiii everyone", true},
		{"BUYNOWPLEASE", true},
		{"ПРИВЕТКАКДЕЛАДРУЗЬЯ", false},
		{"hiiii", false},
		{"would trade for a guitar", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := c.MatchesSpamPatterns(tc.content); got != tc.want {
			t.Errorf("MatchesSpamPatterns(%q) = %v, want %v", tc.content, got, tc.want)
		}
	}
}

func TestLoadRulesRejectsBrokenSets(t *testing.T) {
	t.Parallel()

	if _, err := LoadRules("does-not-exist.yml"); err == nil {
		t.Error("expected error for missing rules file")
	}
	if _, err := NewClassifier(&RuleSet{
		Keywords:       []string{"sell"},
		PhrasePatterns: []string{"("},
		RepeatRun:      5,
		UppercaseRun:   10,
	}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
