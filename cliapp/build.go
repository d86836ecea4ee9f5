// Package cliapp assembles the cobra command tree (test-all, fix-tests,
// augment, setup, analyze-logs) and wires a loaded configuration into a
// runnable Orchestrator/Runner pair.
package cliapp

import (
	"fmt"
	"os"

	"kaizen/compat"
	"kaizen/config"
	"kaizen/entrypoint"
	"kaizen/evaluator"
	"kaizen/execengine"
	"kaizen/fixer"
	"kaizen/llm"
	"kaizen/materialize"
	"kaizen/orchestrator"
	"kaizen/suite"
	"kaizen/testrunner"
)

const (
	geminiFlashModel = "gemini-1.5-flash"
	geminiProModel   = "gemini-1.5-pro"
)

// buildLLMManager registers a code-repair client and a judge client against
// GOOGLE_API_KEY, selecting the higher-capability model when betterAI is
// set (config's better_ai / --better-ai).
func buildLLMManager(betterAI bool) (*llm.Manager, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is required for evaluation and repair")
	}

	model := geminiFlashModel
	if betterAI {
		model = geminiProModel
	}

	mgr := llm.NewManager()
	cfg := llm.Config{Provider: "gemini", Model: model, APIKey: apiKey, Temperature: 0.2}
	if err := mgr.RegisterLLM(llm.PurposeCode, cfg); err != nil {
		return nil, fmt.Errorf("register code model: %w", err)
	}
	if err := mgr.RegisterLLM(llm.PurposeJudge, cfg); err != nil {
		return nil, fmt.Errorf("register judge model: %w", err)
	}
	return mgr, nil
}

// buildRunner resolves cfg's entry point against its compiled plugin and
// assembles a Runner ready to Execute.
func buildRunner(cfg *config.Config, resolver *entrypoint.Resolver, llmMgr *llm.Manager) (*testrunner.Runner, error) {
	modulePath := cfg.ResolvePath(cfg.Agent.Module)

	fallback := true
	if cfg.Agent.FallbackToFunction != nil {
		fallback = *cfg.Agent.FallbackToFunction
	}
	ep := entrypoint.AgentEntryPoint{
		Module:             modulePath,
		Class:              cfg.Agent.Class,
		Method:             cfg.Agent.Method,
		FallbackToFunction: fallback,
	}

	resolved, err := resolver.Resolve(modulePath, ep)
	if err != nil {
		return nil, fmt.Errorf("resolve entry point: %w", err)
	}

	engine := execengine.New()
	if err := engine.CheckRequiredDependencies(cfg.Dependencies, resolved); err != nil {
		return nil, err
	}

	s, err := suite.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := resolver.ClassRegistry(modulePath, classPathsOf(s))
	if err != nil {
		return nil, fmt.Errorf("build class registry: %w", err)
	}

	return &testrunner.Runner{
		Name:         cfg.Name,
		FilePath:     cfg.ResolvedFilePath(),
		ConfigPath:   cfg.ConfigDir(),
		Resolved:     resolved,
		Materializer: materialize.New(registry),
		Engine:       engine,
		Evaluator:    evaluator.New(llmMgr),
		Cases:        s.Cases,
	}, nil
}

func classPathsOf(s suite.TestSuite) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, c := range s.Cases {
		for _, in := range c.Input {
			if in.Type != materialize.TagObject && in.Type != materialize.TagInlineObject {
				continue
			}
			if in.ClassPath == "" || seen[in.ClassPath] {
				continue
			}
			seen[in.ClassPath] = true
			paths = append(paths, in.ClassPath)
		}
	}
	return paths
}

// buildOrchestrator wires a Runner plus the repair-loop collaborators from
// the same configuration.
func buildOrchestrator(cfg *config.Config, runner *testrunner.Runner, llmMgr *llm.Manager) *orchestrator.Orchestrator {
	filesToFix := resolveAll(cfg, cfg.FilesToFix)
	referenced := resolveAll(cfg, cfg.ReferencedFiles)

	return orchestrator.New(runner, fixer.New(llmMgr), compat.New(), orchestrator.RunConfig{
		FilesToFix:           filesToFix,
		ReferencedFiles:      referenced,
		RequiredDependencies: cfg.Dependencies,
		MaxRetries:           cfg.MaxRetries,
		PRStrategy:           orchestrator.PRStrategy(cfg.PRStrategy),
		UserGoal:             fmt.Sprintf("make every case in %q pass", cfg.Name),
	})
}

func resolveAll(cfg *config.Config, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = cfg.ResolvePath(p)
	}
	return out
}
