package inventory

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	itemSchema        = "item.schema.json"
	bulkChangesSchema = "bulk_changes.schema.json"
)

// JSONSchemaValidator validates payloads against the embedded schemas,
// compiling each schema once.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

var _ ItemValidator = (*JSONSchemaValidator)(nil)

// NewJSONSchemaValidator builds a validator backed by jsonschema v5.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{compiled: make(map[string]*jsonschema.Schema)}
}

// ValidateItem checks an item payload and the reserved-within-quantity rule.
func (v *JSONSchemaValidator) ValidateItem(item Item) error {
	if err := v.validate("validate item", itemSchema, item); err != nil {
		return err
	}
	for i, variant := range item.Variants {
		if variant.Inventory.Reserved > variant.Inventory.Quantity {
			return NewValidationError("validate item", fmt.Sprintf("variant %d reserves more than its quantity", i), nil)
		}
	}
	return nil
}

// ValidateBulkChanges checks a change list against the bulk schema.
func (v *JSONSchemaValidator) ValidateBulkChanges(changes []BulkChange) error {
	return v.validate("validate bulk changes", bulkChangesSchema, changes)
}

// ValidateRawItem checks an undecoded item document.
func (v *JSONSchemaValidator) ValidateRawItem(data []byte) error {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return NewValidationError("validate item", "payload is not valid JSON", err)
	}
	schema, err := v.schemaFor(itemSchema)
	if err != nil {
		return err
	}
	if err := schema.Validate(payload); err != nil {
		return NewValidationError("validate item", err.Error(), err)
	}
	return nil
}

func (v *JSONSchemaValidator) validate(op, name string, value any) error {
	schema, err := v.schemaFor(name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("inventory: marshal payload for %s: %w", name, err)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("inventory: normalize payload for %s: %w", name, err)
	}
	if err := schema.Validate(payload); err != nil {
		return NewValidationError(op, err.Error(), err)
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(name string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[name]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	data, err := schemaFS.ReadFile(path.Join("schemas", name))
	if err != nil {
		return nil, fmt.Errorf("inventory: read schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("inventory: load schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("inventory: compile schema %s: %w", name, err)
	}
	v.mu.Lock()
	v.compiled[name] = compiled
	v.mu.Unlock()
	return compiled, nil
}
