package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// catalogFile is the on-disk shape of a catalog.
type catalogFile struct {
	Cards []Entry `yaml:"cards"`
}

// Load reads a YAML catalog file, validates every entry against the
// embedded CUE schema, and returns the catalog.
//
// Decoding is strict: unknown YAML fields are rejected (catches typos
// like "descriptoin:"). Schema violations are reported as *SchemaError
// with the entry's position in the file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var file catalogFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}
	if len(file.Cards) == 0 {
		return nil, fmt.Errorf("catalog %s: no cards", path)
	}

	if err := validateEntries(file.Cards); err != nil {
		return nil, err
	}

	return New(file.Cards)
}

// validateEntries checks each entry against the #Entry schema.
// Stops at the first violation.
func validateEntries(entries []Entry) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile entry schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Entry"))
	if !def.Exists() {
		return fmt.Errorf("entry schema: #Entry definition missing")
	}

	for i, e := range entries {
		v := ctx.Encode(e)
		if err := v.Err(); err != nil {
			return &SchemaError{Index: i, ID: e.ID, Message: cueMessage(err)}
		}
		unified := def.Unify(v)
		if err := unified.Validate(cue.Concrete(true)); err != nil {
			return &SchemaError{Index: i, ID: e.ID, Message: cueMessage(err)}
		}
	}

	return nil
}

// SchemaError reports an entry that failed schema validation.
type SchemaError struct {
	// Index is the entry's position in the catalog file's card list.
	Index int

	// ID is the entry id, if one was present.
	ID string

	// Message is the schema violation.
	Message string
}

func (e *SchemaError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("card %q (index %d): %s", e.ID, e.Index, e.Message)
	}
	return fmt.Sprintf("card at index %d: %s", e.Index, e.Message)
}

// cueMessage extracts the first message from a CUE error.
// CUE errors may contain multiple errors; the first is the most specific.
func cueMessage(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	return errs[0].Error()
}
