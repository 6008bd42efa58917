// Package monitor validates gateway configuration documents against a JSON
// schema before an adapter is constructed from them, so malformed or
// incomplete config fails loudly at startup rather than mid-payment.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// GatewayConfigSchema is the shape every gateway configuration document must
// satisfy.
const GatewayConfigSchema = `{
  "type": "object",
  "required": ["gateway", "base_url", "auth"],
  "properties": {
    "gateway": {"type": "string", "minLength": 1},
    "base_url": {"type": "string", "pattern": "^https?://"},
    "auth": {"type": "string", "enum": ["bearer", "basic", "hmac", "body_embedded"]},
    "requires_empty_object_for_full_capture": {"type": "boolean"},
    "webhook_secret": {"type": "string"}
  },
  "additionalProperties": false
}`

// ConfigMonitor validates configuration documents against a compiled schema.
type ConfigMonitor struct {
	schema *gojsonschema.Schema
}

// NewConfigMonitor compiles the given schema document. Pass
// GatewayConfigSchema for the standard gateway config shape.
func NewConfigMonitor(schemaDocument string) (*ConfigMonitor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaDocument))
	if err != nil {
		return nil, fmt.Errorf("error compiling config schema: %w", err)
	}
	return &ConfigMonitor{schema: schema}, nil
}

// Validate validates the given configuration document against the schema.
// It returns true if valid, or false and a list of validation errors.
func (cm *ConfigMonitor) Validate(configDocument []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(configDocument))
	if err != nil {
		return false, nil, fmt.Errorf("error during validation: %w", err)
	}
	if result.Valid() {
		return true, nil, nil
	}
	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return false, errors, nil
}

// FormatErrors formats a slice of validation error strings into a single string.
func FormatErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(validationErrors, "; ")
}
