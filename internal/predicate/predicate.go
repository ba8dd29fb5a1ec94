// Package predicate implements the Predicate Evaluator (spec section
// 4.1): a general-purpose boolean expression language over an
// interaction's request, response, and metadata, used by the intercept
// registry, the --filter log gate, and the admin ?filter= query.
//
// Grounded on the teacher's internal/engine, which compiles a rule set
// once under lock and evaluates it concurrently without re-parsing
// (internal/engine/engine.go's rebuild/Evaluate split). The expression
// language itself is google/cel-go rather than the teacher's structured
// matcher, since spec section 4.1 calls for a general-purpose expression
// language, not a fixed set of match fields — cel-go is the library the
// wider retrieval pack reaches for in exactly that role. The teacher's
// own matching library, gobwas/glob, is preserved as a custom glob()
// function registered into the CEL environment (see env.go) so path/
// string globbing still works the way the teacher's rules expect it to.
package predicate

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/sagikazarmark/replayr/internal/model"
)

// sharedEnv is built once; a *cel.Env is safe for concurrent Compile
// calls once constructed.
var (
	sharedEnv     *cel.Env
	sharedEnvOnce sync.Once
	sharedEnvErr  error
)

func env() (*cel.Env, error) {
	sharedEnvOnce.Do(func() {
		sharedEnv, sharedEnvErr = newEnv()
	})
	return sharedEnv, sharedEnvErr
}

// Predicate is a compiled expression ready for repeated evaluation.
type Predicate struct {
	source string
	prg    cel.Program
}

// Compile parses and type-checks expr once. The returned Predicate may
// be evaluated concurrently from multiple goroutines.
func Compile(expr string) (*Predicate, error) {
	e, err := env()
	if err != nil {
		return nil, fmt.Errorf("predicate: build environment: %w", err)
	}

	ast, iss := e.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("predicate: compile %q: %w", expr, iss.Err())
	}

	prg, err := e.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("predicate: program %q: %w", expr, err)
	}

	return &Predicate{source: expr, prg: prg}, nil
}

// String returns the original expression text.
func (p *Predicate) String() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Eval runs the compiled predicate against an interaction. Per spec
// section 4.1, any runtime evaluation error or a non-boolean result
// collapses to false — Eval never panics and never returns an error. A
// nil *Predicate also evaluates to false, so callers can treat "no rule
// configured" and "rule didn't match" identically.
func (p *Predicate) Eval(i model.Interaction) (result bool) {
	if p == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			result = false
		}
	}()

	out, _, err := p.prg.Eval(activation(i))
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false
	}
	return b
}

// cache memoizes compiled predicates by their raw expression text, so
// repeated evaluation of the same intercept/filter expression across
// many requests never reparses it.
var cache sync.Map // string -> *Predicate

// CompileCached is Compile with a package-level cache keyed on the exact
// expression text. Compile errors are not cached — a transient failure
// (there shouldn't be one, since CEL compilation is pure, but this keeps
// the contract simple) never sticks.
func CompileCached(expr string) (*Predicate, error) {
	if v, ok := cache.Load(expr); ok {
		return v.(*Predicate), nil
	}
	p, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	cache.Store(expr, p)
	return p, nil
}
