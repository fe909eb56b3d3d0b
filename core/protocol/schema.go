package protocol

import "github.com/invopop/jsonschema"

// Schema reflects the outbound envelope into a JSON schema, so clients
// can validate frames or generate bindings without reading Go source.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(&ServerMessage{})
}
