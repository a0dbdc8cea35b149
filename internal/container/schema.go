package container

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema pins the field names and JSON types of a container
// document. Field contents (lengths, encodings) are checked after decoding.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Encrypted key container",
  "type": "object",
  "required": ["version", "salt", "nonce", "ciphertext"],
  "properties": {
    "version": {
      "type": "integer"
    },
    "salt": {
      "type": "string"
    },
    "nonce": {
      "type": "string"
    },
    "ciphertext": {
      "type": "string"
    },
    "public_identity": {
      "type": "string"
    }
  }
}`

// validateDocument validates raw bytes against the container schema
func validateDocument(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("%w:\n  - %s", ErrFormat, strings.Join(errorMessages, "\n  - "))
	}

	return nil
}
