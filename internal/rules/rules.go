package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ircevents/internal/engine"
	"github.com/roach88/ircevents/internal/ircmsg"
)

//go:embed schema.cue
var schemaSrc string

// Rule is one compiled rule.
type Rule struct {
	Name  string
	When  engine.MatchSpec
	Reply *Template // nil when the rule does not reply
	Count string    // counter key, "" when the rule does not count
	Log   bool
	Pos   token.Pos
}

// Actions lists the rule's actions for display, e.g. "reply,count".
func (r Rule) Actions() string {
	var acts []string
	if r.Reply != nil {
		acts = append(acts, "reply")
	}
	if r.Count != "" {
		acts = append(acts, "count")
	}
	if r.Log {
		acts = append(acts, "log")
	}
	return strings.Join(acts, ",")
}

// Compile extracts every rule under the top-level "rule" struct of v, in
// source order. All rule errors are collected and returned joined; the
// rules that compiled are returned alongside them.
func Compile(v cue.Value) ([]Rule, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("", err)
	}

	rulesVal := v.LookupPath(cue.ParsePath("rule"))
	if !rulesVal.Exists() {
		return nil, &CompileError{Field: "rule", Message: "no rules declared", Pos: v.Pos()}
	}

	schema := v.Context().CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("rule schema: %w", err)
	}
	def := schema.LookupPath(cue.MakePath(cue.Def("#Rule")))

	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError("", err)
	}

	var (
		rules []Rule
		errs  []error
	)
	for iter.Next() {
		rule, err := compileRule(iter.Label(), iter.Value(), def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, rule)
	}
	if len(rules) == 0 && len(errs) == 0 {
		errs = append(errs, &CompileError{Field: "rule", Message: "no rules declared", Pos: rulesVal.Pos()})
	}
	return rules, errors.Join(errs...)
}

// CompileRule compiles a single rule value. The rule name is taken from
// the value's path label.
func CompileRule(v cue.Value) (Rule, error) {
	var name string
	if sels := v.Path().Selectors(); len(sels) > 0 && sels[len(sels)-1].LabelType() == cue.StringLabel {
		name = sels[len(sels)-1].Unquoted()
	}
	schema := v.Context().CompileString(schemaSrc, cue.Filename("schema.cue"))
	return compileRule(name, v, schema.LookupPath(cue.MakePath(cue.Def("#Rule"))))
}

func compileRule(name string, v cue.Value, def cue.Value) (Rule, error) {
	if err := v.Err(); err != nil {
		return Rule{}, formatCUEError(name, err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return Rule{}, formatCUEError(name, err)
	}

	rule := Rule{Name: name, Pos: v.Pos()}

	when, err := parseWhen(name, v.LookupPath(cue.ParsePath("when")))
	if err != nil {
		return Rule{}, err
	}
	rule.When = when

	if replyVal := v.LookupPath(cue.ParsePath("reply")); replyVal.Exists() {
		src, err := replyVal.String()
		if err != nil {
			return Rule{}, formatCUEError(name, err)
		}
		tmpl, err := parseReply(src)
		if err != nil {
			return Rule{}, &CompileError{Rule: name, Field: "reply", Message: err.Error(), Pos: replyVal.Pos()}
		}
		rule.Reply = &tmpl
	}

	if countVal := v.LookupPath(cue.ParsePath("count")); countVal.Exists() {
		if rule.Count, err = countVal.String(); err != nil {
			return Rule{}, formatCUEError(name, err)
		}
	}

	if logVal := v.LookupPath(cue.ParsePath("log")); logVal.Exists() {
		if rule.Log, err = logVal.Bool(); err != nil {
			return Rule{}, formatCUEError(name, err)
		}
	}

	if rule.Reply == nil && rule.Count == "" && !rule.Log {
		return Rule{}, &CompileError{
			Rule:    name,
			Field:   "action",
			Message: "at least one of reply, count or log is required",
			Pos:     v.Pos(),
		}
	}
	return rule, nil
}

// parseWhen accepts "always" or {field, equals}.
func parseWhen(name string, v cue.Value) (engine.MatchSpec, error) {
	if s, err := v.String(); err == nil {
		if s != "always" {
			return engine.MatchSpec{}, &CompileError{Rule: name, Field: "when", Message: fmt.Sprintf("unknown condition %q", s), Pos: v.Pos()}
		}
		return engine.Always(), nil
	}

	field, err := v.LookupPath(cue.ParsePath("field")).String()
	if err != nil {
		return engine.MatchSpec{}, formatCUEError(name, err)
	}
	equals, err := v.LookupPath(cue.ParsePath("equals")).String()
	if err != nil {
		return engine.MatchSpec{}, formatCUEError(name, err)
	}
	if !ircmsg.KnownField(field) {
		return engine.MatchSpec{}, &CompileError{
			Rule:    name,
			Field:   "when.field",
			Message: fmt.Sprintf("unknown field %q", field),
			Pos:     v.Pos(),
		}
	}
	return engine.FieldEquals(field, equals), nil
}

// parseReply parses the template and checks that it builds a valid
// reply when every field it names is present.
func parseReply(src string) (Template, error) {
	tmpl, err := ParseTemplate(src)
	if err != nil {
		return Template{}, err
	}
	sample := &ircmsg.Message{
		Tags:    map[string]string{},
		Source:  "x!x@x",
		Command: "X",
		Params:  []string{"x"},
	}
	for _, f := range tmpl.Fields() {
		if tag, ok := strings.CutPrefix(f, "tag:"); ok {
			sample.Tags[tag] = "x"
		}
		if idx, ok := strings.CutPrefix(f, "param"); ok {
			if n, err := strconv.Atoi(idx); err == nil {
				for len(sample.Params) <= n {
					sample.Params = append(sample.Params, "x")
				}
			}
		}
	}
	if _, err := tmpl.Build(sample); err != nil {
		return Template{}, fmt.Errorf("malformed IRC line: %w", err)
	}
	return tmpl, nil
}

// Load compiles every CUE file in dir.
func Load(dir string) ([]Rule, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("rules directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("rules directory: %w", err)
	}
	instances := load.Instances([]string{"."}, &load.Config{Dir: abs})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError("", inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError("", err)
	}
	return Compile(value)
}

// FindCUEFiles returns the .cue files directly inside dir.
func FindCUEFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, err
	}
	return matches, nil
}
