package assoc

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("assoc: evaluator not configured")

// Rule is an expression that must evaluate to true for a node to be valid.
// The serialized attributes are bound as top-level variables next to self,
// relations, counts and now.
type Rule struct {
	Expr    string
	Message string
}

func (r *Registry) evaluateRule(rule Rule, ctx RuleContext) (bool, error) {
	if rule.Expr == "" {
		return false, ErrEmptyExpression
	}
	evaluator, err := r.resolveEvaluator()
	if err != nil {
		return false, err
	}
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, rule.Expr)
	duration := time.Since(start)
	if evalErr == nil {
		if _, ok := value.(bool); !ok {
			evalErr = ruleFailure(engine, StageResult, rule.Expr, fmt.Errorf("rule returned %T, want bool", value))
		}
	}
	evalErr = attributeFailure(engine, rule.Expr, ctx, evalErr)
	r.cfg.logger.V(2).Info("rule evaluated",
		"engine", engine,
		"type", ctx.Node.Type,
		"cid", ctx.Node.CID,
		"expr", rule.Expr,
		"duration", duration,
		"error", evalErr,
	)
	if evalErr != nil {
		return false, evalErr
	}
	return value.(bool), nil
}

// resolveEvaluator returns the configured evaluator, building the default
// expr engine from the registry's cache and functions on first use.
func (r *Registry) resolveEvaluator() (Evaluator, error) {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	if r.cfg.evaluator != nil {
		return r.cfg.evaluator, nil
	}
	defaultEvaluator := NewExprEvaluator(
		EngineProgramCache(r.cfg.programCache),
		EngineFunctions(r.cfg.functions),
	)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	r.cfg.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}
