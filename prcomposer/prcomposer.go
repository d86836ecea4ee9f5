// Package prcomposer renders the PR body from a run's history and memory
// and drives the git/hosting-API side effects: branch, commit, push, and
// open a pull request against the repository inferred from the remote.
//
// Grounded on gitutil's CLI wrapper for the git side and
// github.com/google/go-github/v62 for the hosting API, authenticated the
// way golang.org/x/oauth2's static-token client is used throughout the
// pack's OAuth-backed integrations.
package prcomposer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"kaizen/gitutil"
	"kaizen/history"
	"kaizen/memory"
	"kaizen/testrunner"
)

// AgentSummary is the first body section: the agent under test's own
// identity, not the autofix tool's.
type AgentSummary struct {
	Name        string
	Version     string
	Description string
}

// Config is everything the composer needs to reach the hosting API and
// the git remote.
type Config struct {
	RepoRoot    string
	BaseBranch  string
	GitHubToken string
	Remote      string // defaults to "origin"
}

// Composer drives PR composition for one run.
type Composer struct {
	cfg    Config
	client *github.Client
	// now is overridable in tests so branch names are deterministic.
	now func() time.Time
}

// New creates a Composer authenticated against the hosting API with
// cfg.GitHubToken.
func New(ctx context.Context, cfg Config) *Composer {
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
	httpClient := oauth2.NewClient(ctx, ts)
	return &Composer{cfg: cfg, client: github.NewClient(httpClient), now: time.Now}
}

// BranchName derives autofix-<timestamp>, appending a numeric suffix if
// that branch already exists.
func (c *Composer) BranchName() (string, error) {
	base := fmt.Sprintf("autofix-%d", c.now().Unix())
	name := base
	for suffix := 2; gitutil.BranchExists(c.cfg.RepoRoot, name); suffix++ {
		name = base + "-" + strconv.Itoa(suffix)
		if suffix > 1000 {
			return "", fmt.Errorf("prcomposer: could not find a free branch name derived from %s", base)
		}
	}
	return name, nil
}

// Compose stages changedFiles, commits, creates/pushes branch, and opens a
// pull request. Restores the original branch on exit, including on
// failure, since the working tree is owned by this call for its
// duration.
func (c *Composer) Compose(ctx context.Context, agent AgentSummary, hist *history.History, mem *memory.Store, changedFiles []string) (string, error) {
	startBranch, err := gitutil.CurrentBranch(c.cfg.RepoRoot)
	if err != nil {
		return "", fmt.Errorf("prcomposer: %w", err)
	}
	defer gitutil.Checkout(c.cfg.RepoRoot, startBranch)

	branch, err := c.BranchName()
	if err != nil {
		return "", fmt.Errorf("prcomposer: %w", err)
	}
	if err := gitutil.CreateBranch(c.cfg.RepoRoot, branch); err != nil {
		return "", fmt.Errorf("prcomposer: create branch: %w", err)
	}
	if err := gitutil.StageFiles(c.cfg.RepoRoot, changedFiles); err != nil {
		return "", fmt.Errorf("prcomposer: stage: %w", err)
	}

	best, _ := hist.Best()
	title := Title(agent, best)
	if err := gitutil.Commit(c.cfg.RepoRoot, title); err != nil {
		return "", fmt.Errorf("prcomposer: commit: %w", err)
	}
	if err := gitutil.Push(c.cfg.RepoRoot, branch); err != nil {
		return "", fmt.Errorf("prcomposer: push: %w", err)
	}

	remoteURL, err := gitutil.RemoteURL(c.cfg.RepoRoot, c.cfg.Remote)
	if err != nil {
		return "", fmt.Errorf("prcomposer: %w", err)
	}
	owner, repo, err := gitutil.OwnerRepo(remoteURL)
	if err != nil {
		return "", fmt.Errorf("prcomposer: %w", err)
	}

	body := RenderBody(agent, hist, mem, changedFiles)
	pr, _, err := c.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(branch),
		Base:  github.String(c.cfg.BaseBranch),
		Body:  github.String(body),
	})
	if err != nil {
		return "", fmt.Errorf("prcomposer: create pull request: %w", err)
	}
	return pr.GetHTMLURL(), nil
}

// Title composes the PR title from the agent identity and the best
// attempt's summary.
func Title(agent AgentSummary, best history.Entry) string {
	return fmt.Sprintf("autofix: %s (%d/%d passing)", agent.Name, best.Result.Summary.Passed, best.Result.Summary.Total)
}

// RenderBody builds the five stable, machine-parseable sections: Agent
// Summary, Test Results Summary, Detailed Results, Code Changes, and
// Additional Summary.
func RenderBody(agent AgentSummary, hist *history.History, mem *memory.Store, changedFiles []string) string {
	var b strings.Builder

	baseline, _ := hist.Baseline()
	best, _ := hist.Best()

	writeAgentSummary(&b, agent)
	writeResultsTable(&b, hist)
	writeDetailedResults(&b, baseline.Result, best)
	writeCodeChanges(&b, mem, changedFiles)
	writeAdditionalSummary(&b, mem)

	return b.String()
}

func writeAgentSummary(b *strings.Builder, agent AgentSummary) {
	b.WriteString("## Agent Summary\n\n")
	fmt.Fprintf(b, "**%s** (%s)\n\n%s\n\n", agent.Name, orDefault(agent.Version, "unversioned"), agent.Description)
}

// writeResultsTable renders one column per history entry in append order
// (baseline, each fix_attempt_i, final) and one row per baseline case.
func writeResultsTable(b *strings.Builder, hist *history.History) {
	b.WriteString("## Test Results Summary\n\n")

	entries := hist.Entries()
	baseline, hasBaseline := hist.Baseline()
	if !hasBaseline {
		b.WriteString("_no baseline recorded_\n\n")
		return
	}

	b.WriteString("| Test Case | Baseline |")
	for _, e := range entries {
		if e.Kind == history.KindBaseline {
			continue
		}
		fmt.Fprintf(b, " %s |", columnHeader(e))
	}
	b.WriteString(" Final Status | Improvement (Yes/No) |\n")

	b.WriteString("|---|---|")
	for range entries[1:] {
		b.WriteString("---|")
	}
	b.WriteString("---|---|\n")

	finalStatus := finalStatusByCase(entries)

	for _, c := range baseline.Cases {
		fmt.Fprintf(b, "| %s | %s |", c.Name, c.Status)
		for _, e := range entries {
			if e.Kind == history.KindBaseline {
				continue
			}
			fmt.Fprintf(b, " %s |", statusForCase(e.Result, c.Name))
		}
		final := finalStatus[c.Name]
		improvement := "No"
		if final == testrunner.CaseStatusPassed && c.Status != testrunner.CaseStatusPassed {
			improvement = "Yes"
		}
		fmt.Fprintf(b, " %s | %s |\n", orDash(string(final)), improvement)
	}
	b.WriteString("\n")
}

func columnHeader(e history.Entry) string {
	if e.Kind == history.KindFinal {
		return "Final"
	}
	return fmt.Sprintf("Attempt %d", e.AttemptNumber)
}

func statusForCase(result testrunner.TestExecutionResult, name string) string {
	for _, c := range result.Cases {
		if c.Name == name {
			return string(c.Status)
		}
	}
	return "—"
}

func finalStatusByCase(entries []history.Entry) map[string]testrunner.CaseStatus {
	out := make(map[string]testrunner.CaseStatus)
	if len(entries) == 0 {
		return out
	}
	last := entries[len(entries)-1]
	for _, c := range last.Result.Cases {
		out[c.Name] = c.Status
	}
	return out
}

func writeDetailedResults(b *strings.Builder, baseline, best testrunner.TestExecutionResult) {
	b.WriteString("## Detailed Results\n\n")

	b.WriteString("### Baseline\n\n")
	writeCases(b, baseline.Cases)

	b.WriteString("### Best Attempt\n\n")
	writeCases(b, best.Result.Cases)
}

func writeCases(b *strings.Builder, cases []testrunner.TestCaseResult) {
	for _, c := range cases {
		fmt.Fprintf(b, "- **%s** (%s)\n", c.Name, c.Status)
		fmt.Fprintf(b, "  - input: `%v`\n", c.Input)
		if c.ExpectedOutput != nil {
			fmt.Fprintf(b, "  - expected: `%v`\n", c.ExpectedOutput)
		}
		fmt.Fprintf(b, "  - actual: `%v`\n", c.ActualOutput)
		for _, v := range c.Evaluation {
			fmt.Fprintf(b, "  - evaluation (%s): %s — %s\n", v.Target, v.Status, v.Evaluation)
		}
		if c.ErrorMessage != "" {
			fmt.Fprintf(b, "  - error: %s — %s\n", c.ErrorMessage, c.ErrorDetails)
		}
	}
	b.WriteString("\n")
}

func writeCodeChanges(b *strings.Builder, mem *memory.Store, changedFiles []string) {
	b.WriteString("## Code Changes\n\n")
	for _, path := range changedFiles {
		fmt.Fprintf(b, "### %s\n\n", path)
		for _, rec := range mem.ForFile(path) {
			fmt.Fprintf(b, "- attempt %d: %s\n", rec.AttemptNumber, bulletFor(rec))
		}
	}
	b.WriteString("\n")
}

func bulletFor(rec memory.Record) string {
	if rec.ApproachDescription != "" {
		return rec.ApproachDescription
	}
	if len(rec.Insights) > 0 {
		return strings.Join(rec.Insights, ", ")
	}
	return "no description recorded"
}

func writeAdditionalSummary(b *strings.Builder, mem *memory.Store) {
	b.WriteString("## Additional Summary\n\n")
	seen := make(map[string]bool)
	var insights []string
	for _, rec := range mem.All() {
		for _, ins := range rec.Insights {
			if !seen[ins] {
				seen[ins] = true
				insights = append(insights, ins)
			}
		}
	}
	if len(insights) == 0 {
		b.WriteString("_no additional insights_\n")
		return
	}
	for _, ins := range insights {
		fmt.Fprintf(b, "- %s\n", ins)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
