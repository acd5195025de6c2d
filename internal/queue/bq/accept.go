package bq

import (
	"encoding/json"
	"strings"

	"github.com/google/cel-go/cel"
)

// Accept decides whether a candidate request node should be included in
// the result of PeekElements. name is the short node name (e.g.
// "qn-0000000042"); payload is its raw bytes.
type Accept func(name string, payload []byte) bool

// AcceptAll matches every request node; the zero value for callers that
// don't need filtering.
func AcceptAll(string, []byte) bool { return true }

// celAccept wraps a compiled CEL program exposing the candidate's short
// name, raw size, and (best-effort) parsed JSON payload as variables.
type celAccept struct {
	prog cel.Program
}

// CompileAccept compiles a CEL boolean expression into an Accept
// predicate. An empty expression compiles to AcceptAll. The expression
// sees "name" (string), "size" (int), "text" (string), and "json" (dyn,
// the payload parsed as JSON when possible, else null).
func CompileAccept(expr string) (Accept, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return AcceptAll, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		cel.Variable("json", cel.DynType),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return nil, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, err
	}
	c := &celAccept{prog: prog}
	return c.eval, nil
}

func (c *celAccept) eval(name string, payload []byte) bool {
	var jsonObj any
	_ = json.Unmarshal(payload, &jsonObj)
	out, _, err := c.prog.Eval(map[string]any{
		"name": name,
		"size": int64(len(payload)),
		"text": string(payload),
		"json": jsonObj,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
