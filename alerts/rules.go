package alerts

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/timzifer/aquasync/remote"
)

// Rule is a compiled free-form alert condition. Sensor keys appear as plain
// variables in the expression; a rule referencing a key that is missing or
// null in the current reading is inert for that evaluation.
type Rule struct {
	id      string
	message string
	program *vm.Program
}

// NewRule compiles an expression into a rule.
func NewRule(id, expression, message string) (Rule, error) {
	if id == "" {
		return Rule{}, fmt.Errorf("rule id must not be empty")
	}
	program, err := expr.Compile(expression, expr.Env(map[string]interface{}{}), expr.AllowUndefinedVariables())
	if err != nil {
		return Rule{}, fmt.Errorf("compile rule %s: %w", id, err)
	}
	if message == "" {
		message = fmt.Sprintf("alert rule %s fired", id)
	}
	return Rule{id: id, message: message, program: program}, nil
}

// ID returns the rule identifier.
func (r Rule) ID() string { return r.id }

// Evaluate runs the rule against a sensor reading. It returns whether the
// rule fired; evaluation errors (typically from keys missing in the reading)
// are reported to the caller and count as not fired.
func (r Rule) Evaluate(reading remote.SensorReading) (bool, error) {
	env := make(map[string]interface{}, len(reading))
	for key, value := range reading {
		if value == nil {
			continue
		}
		env[key] = *value
	}
	output, err := expr.Run(r.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate rule %s: %w", r.id, err)
	}
	fired, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("rule %s: expression yields %T, want bool", r.id, output)
	}
	return fired, nil
}

// Alert renders the fired rule as an alert entry.
func (r Rule) Alert() Alert {
	return Alert{Key: r.id, Label: r.id, Message: r.message}
}
