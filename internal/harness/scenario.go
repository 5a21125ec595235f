package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ircevents/internal/engine"
	"github.com/roach88/ircevents/internal/ircmsg"
)

// Scenario defines one scripted engine run and its expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Delimiter overrides the default "\r\n".
	Delimiter string `yaml:"delimiter,omitempty"`

	// ReadSize caps each scripted read. Zero uses the engine default.
	ReadSize int `yaml:"read_size,omitempty"`

	// MaxLine is the framer's line limit. Zero is unlimited.
	MaxLine int `yaml:"max_line,omitempty"`

	// Policy is "skip" (default) or "fail" for malformed lines.
	Policy string `yaml:"policy,omitempty"`

	// Rules is an optional CUE rules directory, relative to the scenario
	// file when loaded with LoadScenario.
	Rules string `yaml:"rules,omitempty"`

	// Chunks are the raw reads the transport delivers, in order.
	Chunks []string `yaml:"chunks"`

	// TransportError, if set, is returned by the read after the last
	// chunk instead of end of stream.
	TransportError string `yaml:"transport_error,omitempty"`

	// Handlers are registered in order before the run.
	Handlers []HandlerSpec `yaml:"handlers,omitempty"`

	// Expect is checked against the run result.
	Expect Expect `yaml:"expect"`
}

// HandlerSpec declares a recording handler.
type HandlerSpec struct {
	Name string `yaml:"name"`
	When When   `yaml:"when"`

	// Fail, if set, makes the handler return an error with this message.
	Fail string `yaml:"fail,omitempty"`
}

// When is a match condition: the scalar "always" or {field, equals}.
type When struct {
	Always bool
	Field  string
	Equals string
}

// UnmarshalYAML accepts both condition forms.
func (w *When) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		if node.Value != "always" {
			return fmt.Errorf("line %d: unknown condition %q", node.Line, node.Value)
		}
		*w = When{Always: true}
		return nil
	}

	var fe struct {
		Field  string `yaml:"field"`
		Equals string `yaml:"equals"`
	}
	if err := node.Decode(&fe); err != nil {
		return err
	}
	if fe.Field == "" {
		return fmt.Errorf("line %d: field is required", node.Line)
	}
	*w = When{Field: fe.Field, Equals: fe.Equals}
	return nil
}

// MatchSpec converts the condition for the engine.
func (w When) MatchSpec() engine.MatchSpec {
	if w.Always {
		return engine.Always()
	}
	return engine.FieldEquals(w.Field, w.Equals)
}

// Expect states the expected outcome. Unset fields are not checked,
// except Error: an empty Error requires a clean end of stream.
type Expect struct {
	// Commands maps handler name to the exact commands it must receive.
	Commands map[string][]string `yaml:"commands,omitempty"`

	// Replies are the exact lines queued by rules.
	Replies []string `yaml:"replies,omitempty"`

	Malformed *int64  `yaml:"malformed,omitempty"`
	Pending   *string `yaml:"pending,omitempty"`

	// Error is the expected DispatchError code, e.g. HANDLER.
	Error string `yaml:"error,omitempty"`
}

// Policy values.
const (
	PolicySkip = "skip"
	PolicyFail = "fail"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative rules path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Rules != "" && !filepath.IsAbs(scenario.Rules) {
		scenario.Rules = filepath.Join(filepath.Dir(path), scenario.Rules)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by path.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Chunks) == 0 {
		return fmt.Errorf("chunks list is required and must be non-empty")
	}
	if len(s.Handlers) == 0 && s.Rules == "" {
		return fmt.Errorf("at least one handler or a rules directory is required")
	}

	switch s.Policy {
	case "", PolicySkip, PolicyFail:
	default:
		return fmt.Errorf("unknown policy %q", s.Policy)
	}
	if s.ReadSize < 0 {
		return fmt.Errorf("read_size must be non-negative")
	}
	if s.MaxLine < 0 {
		return fmt.Errorf("max_line must be non-negative")
	}

	seen := make(map[string]bool)
	for i, h := range s.Handlers {
		if h.Name == "" {
			return fmt.Errorf("handlers[%d]: name is required", i)
		}
		if seen[h.Name] {
			return fmt.Errorf("handlers[%d]: duplicate name %q", i, h.Name)
		}
		seen[h.Name] = true
		if !h.When.Always && h.When.Field == "" {
			return fmt.Errorf("handlers[%d]: when is required", i)
		}
		if !h.When.Always && !ircmsg.KnownField(h.When.Field) {
			return fmt.Errorf("handlers[%d]: unknown field %q", i, h.When.Field)
		}
	}

	switch s.Expect.Error {
	case "", string(engine.ErrCodeTransport), string(engine.ErrCodeMalformedLine),
		string(engine.ErrCodeHandler), string(engine.ErrCodeLineTooLong):
	default:
		return fmt.Errorf("expect.error: unknown code %q", s.Expect.Error)
	}
	return nil
}
