package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed rules.schema.json
var rulesSchemaJSON []byte

var (
	rulesSchemaLoader     gojsonschema.JSONLoader
	rulesSchemaLoaderErr  error
	rulesSchemaLoaderOnce sync.Once
)

// RulesSchema returns the JSON schema of the rules section as a generic map.
func RulesSchema() (map[string]any, error) {
	var schema map[string]any
	if err := json.Unmarshal(rulesSchemaJSON, &schema); err != nil {
		return nil, fmt.Errorf("config: decode rules schema: %w", err)
	}
	return schema, nil
}

// SchemaError lists every schema violation of a rules section.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	if len(e.Issues) == 0 {
		return "rules failed schema validation"
	}
	return "rules failed schema validation: " + strings.Join(e.Issues, "; ")
}

// ValidateRules checks a decoded rules section against the rules schema.
func ValidateRules(rules any) error {
	loader, err := loadRulesSchema()
	if err != nil {
		return err
	}
	result, err := gojsonschema.Validate(loader, gojsonschema.NewGoLoader(rules))
	if err != nil {
		return fmt.Errorf("config: validate rules: %w", err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return &SchemaError{Issues: issues}
}

func loadRulesSchema() (gojsonschema.JSONLoader, error) {
	rulesSchemaLoaderOnce.Do(func() {
		schema, err := RulesSchema()
		if err != nil {
			rulesSchemaLoaderErr = err
			return
		}
		rulesSchemaLoader = gojsonschema.NewGoLoader(schema)
	})
	return rulesSchemaLoader, rulesSchemaLoaderErr
}
