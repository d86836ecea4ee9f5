// Package evaluator computes per-target verdicts for a test case's
// observed outputs: deterministic rules and an LLM-judged rubric.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"kaizen/llm"
)

// Source selects where the observed value for a target comes from.
type Source string

const (
	SourceReturn   Source = "return"
	SourceVariable Source = "variable"
)

// Status is a target or case-level pass/fail/error verdict.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusError  Status = "error"
)

// Target is one (source, criteria, weight) rubric applied to a case.
type Target struct {
	Name     string
	Source   Source
	Criteria string
	Weight   float64
}

// Verdict is the outcome of evaluating one target.
type Verdict struct {
	Target     string  `json:"target"`
	Status     Status  `json:"status"`
	Evaluation string  `json:"evaluation"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// judgeResponse is the required JSON shape an LLM judge must return.
type judgeResponse struct {
	Status     string  `json:"status"`
	Evaluation string  `json:"evaluation"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// Observed bundles the values available to evaluate a case against.
type Observed struct {
	ReturnValue   any
	TrackedValues map[string]string
}

// Evaluator applies evaluation targets to observed outputs.
type Evaluator struct {
	LLM *llm.Manager
}

// New creates an Evaluator. llmMgr may be nil if no target in the suite
// uses an LLM-judged rule.
func New(llmMgr *llm.Manager) *Evaluator {
	return &Evaluator{LLM: llmMgr}
}

// EvaluateCase applies every target and returns the ordered verdicts plus
// the overall case pass/fail (every required target must pass).
func (e *Evaluator) EvaluateCase(ctx context.Context, caseName string, expected any, targets []Target, observed Observed) ([]Verdict, bool) {
	verdicts := make([]Verdict, 0, len(targets))
	allPassed := true

	for _, target := range targets {
		v := e.evaluateTarget(ctx, caseName, expected, target, observed)
		verdicts = append(verdicts, v)
		if v.Status != StatusPassed {
			allPassed = false
		}
	}

	return verdicts, allPassed
}

func (e *Evaluator) evaluateTarget(ctx context.Context, caseName string, expected any, target Target, observed Observed) Verdict {
	value, ok := e.selectObserved(target, observed)
	if !ok {
		return Verdict{Target: target.Name, Status: StatusFailed, Evaluation: fmt.Sprintf("tracked variable %q was not recorded", target.Name)}
	}

	if rule, args, ok := parseDeterministicRule(target.Criteria); ok {
		return evaluateDeterministic(target.Name, rule, args, value)
	}

	return e.evaluateJudged(ctx, caseName, expected, target, value)
}

func (e *Evaluator) selectObserved(target Target, observed Observed) (string, bool) {
	switch target.Source {
	case SourceReturn:
		return fmt.Sprintf("%v", observed.ReturnValue), true
	case SourceVariable:
		v, ok := observed.TrackedValues[target.Name]
		return v, ok
	default:
		return "", false
	}
}

// parseDeterministicRule recognizes equals(x), contains(x), regex(p),
// type(T). Anything else is treated as an LLM-judged rubric.
func parseDeterministicRule(criteria string) (rule, arg string, ok bool) {
	for _, name := range []string{"equals", "contains", "regex", "type"} {
		prefix := name + "("
		if strings.HasPrefix(criteria, prefix) && strings.HasSuffix(criteria, ")") {
			return name, strings.TrimSuffix(strings.TrimPrefix(criteria, prefix), ")"), true
		}
	}
	return "", "", false
}

func evaluateDeterministic(name, rule, arg, value string) Verdict {
	var passed bool
	switch rule {
	case "equals":
		passed = value == unquote(arg)
	case "contains":
		passed = strings.Contains(value, unquote(arg))
	case "regex":
		re, err := regexp.Compile(arg)
		if err != nil {
			return Verdict{Target: name, Status: StatusError, Evaluation: fmt.Sprintf("invalid regex %q: %v", arg, err)}
		}
		passed = re.MatchString(value)
	case "type":
		passed = matchesType(value, arg)
	}

	status := StatusFailed
	if passed {
		status = StatusPassed
	}
	return Verdict{Target: name, Status: status, Evaluation: fmt.Sprintf("%s(%s) against %q", rule, arg, value)}
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func matchesType(value, typeName string) bool {
	switch strings.ToLower(typeName) {
	case "int", "integer":
		_, err := strconv.Atoi(value)
		return err == nil
	case "float", "number":
		_, err := strconv.ParseFloat(value, 64)
		return err == nil
	case "bool", "boolean":
		_, err := strconv.ParseBool(value)
		return err == nil
	case "string":
		return true
	default:
		return false
	}
}

// evaluateJudged composes a prompt, asks the LLM judge, parses the
// required JSON schema, and retries bounded exponential backoff on
// transient or malformed responses.
func (e *Evaluator) evaluateJudged(ctx context.Context, caseName string, expected any, target Target, value string) Verdict {
	if e.LLM == nil {
		return Verdict{Target: target.Name, Status: StatusError, Evaluation: "no LLM configured for judged rubric"}
	}

	prompt := buildJudgePrompt(caseName, expected, target.Criteria, value)

	var parsed judgeResponse
	var lastErr error

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	attempt := func() error {
		resp, err := e.LLM.Generate(ctx, llm.PurposeJudge, llm.Request{
			Messages: []llm.Message{
				{Role: "system", Content: "You are a strict evaluation judge. Respond with a single JSON object only."},
				{Role: "user", Content: prompt},
			},
			Temperature: 0,
		})
		if err != nil {
			lastErr = err
			return err
		}

		cleaned := stripJSONFences(resp.Content)
		if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
			lastErr = fmt.Errorf("malformed judge response: %w", err)
			return lastErr
		}
		if parsed.Status != string(StatusPassed) && parsed.Status != string(StatusFailed) {
			lastErr = fmt.Errorf("judge response has invalid status %q", parsed.Status)
			return lastErr
		}
		return nil
	}

	if err := backoff.Retry(attempt, backoff.WithContext(bo, ctx)); err != nil {
		return Verdict{Target: target.Name, Status: StatusError, Evaluation: fmt.Sprintf("judge failed after retries: %v", lastErr)}
	}

	return Verdict{
		Target:     target.Name,
		Status:     Status(parsed.Status),
		Evaluation: parsed.Evaluation,
		Reasoning:  parsed.Reasoning,
		Confidence: parsed.Confidence,
	}
}

func buildJudgePrompt(caseName string, expected any, criteria, actual string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Test case: %s\n", caseName)
	if expected != nil {
		fmt.Fprintf(&b, "Expected: %v\n", expected)
	}
	fmt.Fprintf(&b, "Actual: %s\n", actual)
	fmt.Fprintf(&b, "Rubric: %s\n\n", criteria)
	b.WriteString(`Respond with exactly one JSON object: {"status": "passed"|"failed", "evaluation": "...", "reasoning": "...", "confidence": 0.0-1.0}`)
	return b.String()
}

func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// WeightedScore sums weight*1.0 for passed targets, reporting-only per
// Open Question (b): weights never gate a case's pass/fail.
func WeightedScore(verdicts []Verdict, targets []Target) float64 {
	weightByName := make(map[string]float64, len(targets))
	for _, t := range targets {
		weightByName[t.Name] = t.Weight
	}
	var score float64
	for _, v := range verdicts {
		if v.Status == StatusPassed {
			score += weightByName[v.Target]
		}
	}
	return score
}
