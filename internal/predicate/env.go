package predicate

import (
	"github.com/gobwas/glob"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// newEnv builds the shared CEL environment: the three request/response/
// metadata variables from spec section 4.1, plus a glob() extension
// function backed by gobwas/glob (the same library the teacher uses for
// rule path matching in internal/engine/matcher.go).
func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("request", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("response", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("metadata", cel.MapType(cel.StringType, cel.DynType)),
		cel.Function("glob",
			cel.Overload("glob_pattern_value",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(globBinding),
			),
		),
	)
}

// globBinding implements glob(pattern, value). An invalid pattern yields
// false rather than a CEL error — compile/runtime failures in this DSL
// always collapse to false, never surface.
func globBinding(lhs, rhs ref.Val) ref.Val {
	pattern, ok := lhs.Value().(string)
	if !ok {
		return types.Bool(false)
	}
	value, ok := rhs.Value().(string)
	if !ok {
		return types.Bool(false)
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return types.Bool(false)
	}
	return types.Bool(g.Match(value))
}
