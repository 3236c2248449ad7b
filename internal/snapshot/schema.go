package snapshot

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed state.cue
var stateSchemaSrc string

//go:embed queue.cue
var queueSchemaSrc string

// validateAgainst unifies raw JSON with a closed CUE definition.
//
// The closed structs make the schemas strict: a field the definition does
// not name fails unification, which is how unknown top-level fields become
// load-time errors.
func validateAgainst(schemaSrc, defName, filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename(defName+".cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile %s schema: %w", defName, err)
	}
	def := schema.LookupPath(cue.ParsePath(defName))
	if !def.Exists() {
		return fmt.Errorf("schema definition %s not found", defName)
	}

	expr, err := cuejson.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	val := ctx.BuildExpr(expr)
	if err := val.Err(); err != nil {
		return fmt.Errorf("build JSON value: %w", err)
	}

	unified := def.Unify(val)
	if err := unified.Err(); err != nil {
		return err
	}
	return unified.Validate(cue.Concrete(true))
}

// validateStateJSON checks raw bytes against the state-file schema.
func validateStateJSON(data []byte) error {
	return validateAgainst(stateSchemaSrc, "#State", "state.json", data)
}

// validateQueueJSON checks raw bytes against the queue-file schema.
func validateQueueJSON(data []byte) error {
	return validateAgainst(queueSchemaSrc, "#Queue", "queue.json", data)
}
