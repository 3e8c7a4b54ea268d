// Package configschema validates the wire form of a community configuration
// document — the canonical JSON array form described in the external
// interfaces section — against a JSON Schema, independent of the legacy
// YAML converter. A legacy document is converted to this array form before
// it ever reaches Validate: the legacy path is not a trusted shortcut.
package configschema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/flair-helper/flairhelper/pkg/logger"
)

var log = logger.New("configschema")

//go:embed schemas/general_configuration.json
var generalConfigurationSchema string

//go:embed schemas/flair_rule.json
var flairRuleSchema string

//go:embed schemas/config_document.json
var configDocumentSchema string

const (
	generalConfigurationURL = "https://flairhelper.internal/schemas/general_configuration.json"
	flairRuleURL             = "https://flairhelper.internal/schemas/flair_rule.json"
	configDocumentURL        = "https://flairhelper.internal/schemas/config_document.json"
)

// ErrValidation wraps every schema violation returned by Validate, so
// callers can distinguish "bad config" from a compiler or I/O failure with
// errors.Is.
var ErrValidation = errors.New("config document failed schema validation")

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func getCompiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		for url, raw := range map[string]string{
			generalConfigurationURL: generalConfigurationSchema,
			flairRuleURL:             flairRuleSchema,
			configDocumentURL:        configDocumentSchema,
		} {
			var doc any
			if err := json.Unmarshal([]byte(raw), &doc); err != nil {
				compileErr = fmt.Errorf("parse embedded schema %s: %w", url, err)
				return
			}
			if err := compiler.AddResource(url, doc); err != nil {
				compileErr = fmt.Errorf("add schema resource %s: %w", url, err)
				return
			}
		}
		compiledSchema, compileErr = compiler.Compile(configDocumentURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile config document schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate checks canonical JSON (the wire array form: GeneralConfiguration
// at index 0 followed by FlairRule objects) against the schema. It returns
// an error wrapping ErrValidation on any violation.
func Validate(canonicalJSON []byte) error {
	schema, err := getCompiledSchema()
	if err != nil {
		return fmt.Errorf("configschema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(canonicalJSON, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}

	if err := schema.Validate(doc); err != nil {
		log.Printf("validation failed: %v", err)
		return fmt.Errorf("%w: %s", ErrValidation, summarize(err))
	}
	return nil
}

// summarize prefixes the jsonschema error with the JSON pointer path it
// failed at, which is what a moderator needs to see in a wiki-edit
// rejection message.
func summarize(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	if len(ve.InstanceLocation) == 0 {
		return err.Error()
	}
	return fmt.Sprintf("%s: %s", strings.Join(ve.InstanceLocation, "."), err.Error())
}
