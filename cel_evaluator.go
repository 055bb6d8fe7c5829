package assoc

import (
	"fmt"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celEvaluator runs rules with cel-go. CEL type-checks against declared
// variables, so programs are compiled per binding shape: the set of
// attribute names a node carries.
type celEvaluator struct {
	engineConfig
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	return &celEvaluator{engineConfig: newEngineConfig(opts)}
}

func (e *celEvaluator) engineName() string { return "cel" }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

// Compile defers the CEL check to the first evaluation since the declared
// variables depend on the node.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	return &celRule{evaluator: e, expression: expression}, nil
}

type celRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celRule) Evaluate(ctx RuleContext) (any, error) {
	bindings := ctx.bindings()
	program, err := r.evaluator.program(r.expression, bindings)
	if err != nil {
		return nil, ruleFailure("cel", StageCompile, r.expression, err)
	}
	out, _, err := program.Eval(bindings)
	if err != nil {
		return nil, ruleFailure("cel", StageEval, r.expression, err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) program(expression string, bindings map[string]any) (celgo.Program, error) {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	key := "cel:" + strings.Join(names, ",") + ":" + expression
	if cached, ok := e.cached(key); ok {
		if program, ok := cached.(celgo.Program); ok {
			return program, nil
		}
	}

	opts := e.functionOptions()
	for _, name := range names {
		typ := celgo.DynType
		if name == bindNow {
			typ = celgo.TimestampType
		}
		opts = append(opts, celgo.Variable(name, typ))
	}
	env, err := celgo.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.store(key, program)
	return program, nil
}

// maxCELArity bounds the overloads declared for registry functions since
// CEL has no variadic calls.
const maxCELArity = 4

// functionOptions declares every registry function by name. call takes the
// function name as a string first argument.
func (e *celEvaluator) functionOptions() []celgo.EnvOption {
	callables := e.callables()
	names := make([]string, 0, len(callables))
	for name := range callables {
		names = append(names, name)
	}
	sort.Strings(names)

	var opts []celgo.EnvOption
	for _, name := range names {
		binding := celgo.FunctionBinding(celBinding(callables[name]))
		var overloads []celgo.FunctionOpt
		for arity := 1; arity <= maxCELArity; arity++ {
			params := dynArgs(arity)
			if name == "call" {
				params = append([]*celgo.Type{celgo.StringType}, params...)
			}
			overloads = append(overloads, celgo.Overload(
				fmt.Sprintf("%s_dyn_%d", name, arity),
				params,
				celgo.DynType,
				binding,
			))
		}
		opts = append(opts, celgo.Function(name, overloads...))
	}
	return opts
}

func dynArgs(n int) []*celgo.Type {
	args := make([]*celgo.Type, n)
	for i := range args {
		args[i] = celgo.DynType
	}
	return args
}

// celBinding adapts a Function to CEL values. Arguments are unwrapped to the
// Go values they were adapted from.
func celBinding(fn Function) func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		args := make([]any, 0, len(values))
		for _, val := range values {
			args = append(args, val.Value())
		}
		result, err := fn(args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
