//go:build !js_eval

package assoc

// NewJSEvaluator returns nil without the js_eval build tag. Passing nil to
// WithEvaluator falls back to the expr engine.
func NewJSEvaluator(...EngineOption) Evaluator {
	return nil
}

// JSEvaluatorAvailable reports whether the binary was built with js_eval.
func JSEvaluatorAvailable() bool {
	return false
}
