package ir

import "github.com/sans-lang/sans/internal/canon"

// TransformID = sha256(canonical({op, params})).
func (s *Step) TransformID() string {
	return canon.HashOf(map[string]any{"op": string(s.Op), "params": paramsOrEmpty(s.Params)})
}

// TransformClassID = sha256(canonical({op, param_shape(params)})). Two steps
// differing only in literal constants share a class id.
func (s *Step) TransformClassID() string {
	shaped := canon.ShapeDeep(anyMap(paramsOrEmpty(s.Params)))
	return canon.HashOf(map[string]any{"op": string(s.Op), "params": shaped})
}

// StepID = sha256(canonical({transform_id, inputs, outputs})).
func (s *Step) StepID() string {
	return canon.HashOf(map[string]any{
		"transform_id": s.TransformID(),
		"inputs":       stringsToAny(s.Inputs),
		"outputs":      stringsToAny(s.Outputs),
	})
}

func paramsOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func anyMap(m map[string]any) any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
