package assoc

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEvaluator runs rules with github.com/expr-lang/expr. Bindings are
// undeclared at compile time so one program serves every node type.
type exprEvaluator struct {
	engineConfig
}

// NewExprEvaluator constructs the default rule engine.
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	return &exprEvaluator{engineConfig: newEngineConfig(opts)}
}

func (e *exprEvaluator) engineName() string { return "expr" }

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	key := "expr:" + expression
	if cached, ok := e.cached(key); ok {
		if program, ok := cached.(*exprvm.Program); ok {
			return &exprRule{expression: expression, program: program}, nil
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for name, fn := range e.callables() {
		options = append(options, exprlang.Function(name, fn))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, ruleFailure("expr", StageCompile, expression, err)
	}
	e.store(key, program)
	return &exprRule{expression: expression, program: program}, nil
}

type exprRule struct {
	expression string
	program    *exprvm.Program
}

func (r *exprRule) Evaluate(ctx RuleContext) (any, error) {
	out, err := exprlang.Run(r.program, ctx.bindings())
	if err != nil {
		return nil, ruleFailure("expr", StageEval, r.expression, err)
	}
	return out, nil
}
