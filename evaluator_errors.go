package assoc

import (
	"errors"
	"fmt"
)

// ErrEmptyExpression is returned when a rule or evaluator call has no
// expression.
var ErrEmptyExpression = errors.New("assoc: expression must not be empty")

// Stages a rule can fail at.
const (
	StageCompile = "compile"
	StageEval    = "eval"
	StageResult  = "result"
)

// EvaluationError reports a rule expression that could not produce a boolean
// for a node. Type and CID are filled once the failure reaches the node that
// ran the rule.
type EvaluationError struct {
	Engine string
	Stage  string
	Expr   string
	Type   string
	CID    string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	subject := e.Type
	if subject == "" {
		subject = "unknown"
	}
	if e.CID != "" {
		subject += " " + e.CID
	}
	return fmt.Sprintf("assoc: %s rule %q on %s: %s: %v", e.Engine, e.Expr, subject, e.Stage, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ruleFailure wraps an engine error raised while compiling or running expr.
func ruleFailure(engine, stage, expr string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}
	return &EvaluationError{Engine: engine, Stage: stage, Expr: expr, Err: err}
}

// attributeFailure ties err to the node described by ctx. Fields an engine
// already set are kept.
func attributeFailure(engine, expr string, ctx RuleContext, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		evalErr = &EvaluationError{Engine: engine, Stage: StageEval, Expr: expr, Err: err}
	}
	if evalErr.Engine == "" {
		evalErr.Engine = engine
	}
	if evalErr.Expr == "" {
		evalErr.Expr = expr
	}
	if evalErr.Type == "" {
		evalErr.Type = ctx.typeLabel()
	}
	if evalErr.CID == "" {
		evalErr.CID = ctx.Node.CID
	}
	return evalErr
}
