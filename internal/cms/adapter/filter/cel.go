// Package filter evaluates user-supplied CEL expressions against documents.
package filter

import (
	"encoding/json"
	"fmt"

	apperrors "blog-cms/internal/shared/errors"

	"github.com/google/cel-go/cel"
)

// maxExpressionLength bounds expressions accepted from clients.
const maxExpressionLength = 2000

// Expression is a compiled boolean CEL expression over one document variable.
type Expression struct {
	source   string
	variable string
	program  cel.Program
}

// Compile checks that source is a boolean expression over variable. The
// variable is a map keyed by the document's JSON field names.
func Compile(variable, source string) (*Expression, error) {
	if len(source) > maxExpressionLength {
		return nil, apperrors.NewValidationError("filter expression too long")
	}
	env, err := cel.NewEnv(cel.Variable(variable, cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, apperrors.NewValidationError("invalid filter expression: " + issues.Err().Error())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, apperrors.NewValidationError("filter expression must evaluate to a boolean")
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return &Expression{source: source, variable: variable, program: program}, nil
}

func (e *Expression) String() string {
	return e.source
}

// Match evaluates the expression for doc, which is converted through its JSON
// form. An evaluation error, such as a missing field, is returned with false.
func (e *Expression) Match(doc interface{}) (bool, error) {
	vars, err := toMap(doc)
	if err != nil {
		return false, err
	}
	out, _, err := e.program.Eval(map[string]interface{}{e.variable: vars})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return boolean value")
	}
	return result, nil
}

func toMap(doc interface{}) (map[string]interface{}, error) {
	if m, ok := doc.(map[string]interface{}); ok {
		return m, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return m, nil
}
