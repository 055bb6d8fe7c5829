//go:build js_eval

package assoc

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator runs rules with goja. Each evaluation gets a fresh runtime so
// rules cannot leak state between nodes.
type jsEvaluator struct {
	engineConfig
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	return &jsEvaluator{engineConfig: newEngineConfig(opts)}
}

func (e *jsEvaluator) engineName() string { return "js" }

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

// Compile wraps expression in a function body so statements such as
// "return" are rejected and the value of the expression is the result.
func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	key := "js:" + expression
	if cached, ok := e.cached(key); ok {
		if program, ok := cached.(*goja.Program); ok {
			return &jsRule{evaluator: e, expression: expression, program: program}, nil
		}
	}
	source := fmt.Sprintf("(function(){ return (%s); })()", expression)
	program, err := goja.Compile("rule", source, true)
	if err != nil {
		return nil, ruleFailure("js", StageCompile, expression, err)
	}
	e.store(key, program)
	return &jsRule{evaluator: e, expression: expression, program: program}, nil
}

type jsRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsRule) Evaluate(ctx RuleContext) (any, error) {
	vm := goja.New()
	for name, value := range ctx.bindings() {
		if err := vm.Set(name, value); err != nil {
			return nil, ruleFailure("js", StageEval, r.expression, err)
		}
	}
	for name, fn := range r.evaluator.callables() {
		if err := vm.Set(name, fn); err != nil {
			return nil, ruleFailure("js", StageEval, r.expression, err)
		}
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, ruleFailure("js", StageEval, r.expression, err)
	}
	return value.Export(), nil
}

// JSEvaluatorAvailable reports whether the binary was built with js_eval.
func JSEvaluatorAvailable() bool {
	return true
}
