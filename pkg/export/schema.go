package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
)

//go:embed schema.json
var schemaJSON string

// SchemaURL is the id of the embedded document schema.
const SchemaURL = "https://opensurgery.dev/schemas/layout.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString(SchemaURL, schemaJSON)
})

// Schema returns the raw JSON schema of a document.
func Schema() []byte { return []byte(schemaJSON) }

// Validate checks a raw JSON document against the schema.
func Validate(raw []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return oserrors.Wrap(oserrors.ErrCodeInternal, err, "compile layout schema")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return oserrors.Wrap(oserrors.ErrCodeInvalidFormat, err, "decode layout")
	}
	if err := s.Validate(v); err != nil {
		return oserrors.Wrap(oserrors.ErrCodeInvalidFormat, err, "layout does not match schema")
	}
	return nil
}

// ValidateDocument checks doc against the schema.
func ValidateDocument(doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return Validate(raw)
}
