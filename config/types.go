package config

// Config is the run configuration loaded from a kaizen YAML file. Field
// names mirror wilson/config.Config's yaml-tagged struct shape.
type Config struct {
	Name            string           `yaml:"name"`
	FilePath        string           `yaml:"file_path"`
	Agent           AgentConfig      `yaml:"agent"`
	Evaluation      EvaluationConfig `yaml:"evaluation"`
	Steps           []StepConfig     `yaml:"steps"`
	Regions         []string         `yaml:"regions,omitempty"`
	Dependencies    []string         `yaml:"dependencies,omitempty"`
	ReferencedFiles []string         `yaml:"referenced_files,omitempty"`
	FilesToFix      []string         `yaml:"files_to_fix,omitempty"`
	MaxRetries      int              `yaml:"max_retries"`
	CreatePR        bool             `yaml:"create_pr"`
	BaseBranch      string           `yaml:"base_branch"`
	PRStrategy      string           `yaml:"pr_strategy"`
	BetterAI        bool             `yaml:"better_ai"`

	// configDir is the directory containing the loaded YAML file; used to
	// resolve FilePath and other relative paths. Not part of the YAML shape.
	configDir string
}

// AgentConfig describes the entry point under test.
type AgentConfig struct {
	Module             string `yaml:"module"`
	Class              string `yaml:"class,omitempty"`
	Method             string `yaml:"method,omitempty"`
	FallbackToFunction *bool  `yaml:"fallback_to_function,omitempty"`
}

// EvaluationConfig lists the rubrics applied to each test case's outputs.
type EvaluationConfig struct {
	EvaluationTargets []EvaluationTarget `yaml:"evaluation_targets"`
}

// EvaluationTarget names one (source, criteria, weight) rubric.
type EvaluationTarget struct {
	Name     string  `yaml:"name"`
	Source   string  `yaml:"source"` // "return" | "variable"
	Criteria string  `yaml:"criteria"`
	Weight   float64 `yaml:"weight"`
}

// StepConfig is the on-disk shape of one TestCase.
type StepConfig struct {
	Name              string             `yaml:"name"`
	Input             []InputDefConfig   `yaml:"input"`
	ExpectedOutput    any                `yaml:"expected_output,omitempty"`
	EvaluationTargets []EvaluationTarget `yaml:"evaluation_targets,omitempty"`
}

// InputDefConfig is the on-disk shape of one input definition.
type InputDefConfig struct {
	Type       string         `yaml:"type"` // string|number|bool|list|map|object|class_object|inline_object
	Value      any            `yaml:"value,omitempty"`
	ClassPath  string         `yaml:"class_path,omitempty"`
	ImportPath string         `yaml:"import_path,omitempty"`
	PicklePath string         `yaml:"pickle_path,omitempty"` // gob snapshot path
	Args       map[string]any `yaml:"args,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty"`
}

// PR strategy constants.
const (
	PRStrategyAllPassing     = "ALL_PASSING"
	PRStrategyAnyImprovement = "ANY_IMPROVEMENT"
	PRStrategyNone           = "NONE"
)
