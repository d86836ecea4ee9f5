// Package suite converts a loaded configuration's declarative steps into
// the runtime TestCase/InputDef shapes the runner and materializer use, and
// projects runtime cases back into the on-disk YAML shape for augment's
// generated cases.
package suite

import (
	"fmt"

	"kaizen/config"
	"kaizen/evaluator"
	"kaizen/materialize"
	"kaizen/testrunner"
)

// TestSuite is the runtime form of a configuration's steps: a name plus an
// ordered, immutable-after-load case list.
type TestSuite struct {
	Name  string
	Cases []testrunner.TestCase
}

// FromConfig builds a TestSuite from a loaded configuration.
func FromConfig(cfg *config.Config) (TestSuite, error) {
	cases := make([]testrunner.TestCase, 0, len(cfg.Steps))
	for _, step := range cfg.Steps {
		tc, err := fromStep(step)
		if err != nil {
			return TestSuite{}, fmt.Errorf("suite: case %q: %w", step.Name, err)
		}
		cases = append(cases, tc)
	}
	return TestSuite{Name: cfg.Name, Cases: cases}, nil
}

func fromStep(step config.StepConfig) (testrunner.TestCase, error) {
	inputs := make([]materialize.InputDef, 0, len(step.Input))
	for _, in := range step.Input {
		inputs = append(inputs, materialize.InputDef{
			Type:       materialize.Tag(in.Type),
			Value:      in.Value,
			ClassPath:  in.ClassPath,
			ImportPath: in.ImportPath,
			PicklePath: in.PicklePath,
			Args:       in.Args,
			Attributes: in.Attributes,
		})
	}

	targets := make([]evaluator.Target, 0, len(step.EvaluationTargets))
	for _, t := range step.EvaluationTargets {
		targets = append(targets, evaluator.Target{
			Name:     t.Name,
			Source:   evaluator.Source(t.Source),
			Criteria: t.Criteria,
			Weight:   t.Weight,
		})
	}

	return testrunner.TestCase{
		Name:              step.Name,
		Input:             inputs,
		ExpectedOutput:    step.ExpectedOutput,
		EvaluationTargets: targets,
	}, nil
}

// ToStepConfigs projects runtime cases back into the on-disk shape, for
// persisting augment's generated cases alongside the ones a user wrote.
func ToStepConfigs(cases []testrunner.TestCase) []config.StepConfig {
	steps := make([]config.StepConfig, 0, len(cases))
	for _, c := range cases {
		inputs := make([]config.InputDefConfig, 0, len(c.Input))
		for _, in := range c.Input {
			inputs = append(inputs, config.InputDefConfig{
				Type:       string(in.Type),
				Value:      in.Value,
				ClassPath:  in.ClassPath,
				ImportPath: in.ImportPath,
				PicklePath: in.PicklePath,
				Args:       in.Args,
				Attributes: in.Attributes,
			})
		}
		targets := make([]config.EvaluationTarget, 0, len(c.EvaluationTargets))
		for _, t := range c.EvaluationTargets {
			targets = append(targets, config.EvaluationTarget{
				Name:     t.Name,
				Source:   string(t.Source),
				Criteria: t.Criteria,
				Weight:   t.Weight,
			})
		}
		steps = append(steps, config.StepConfig{
			Name:              c.Name,
			Input:             inputs,
			ExpectedOutput:    c.ExpectedOutput,
			EvaluationTargets: targets,
		})
	}
	return steps
}
