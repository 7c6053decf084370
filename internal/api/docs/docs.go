// Package docs carrega o documento OpenAPI servido ao Swagger UI.
// O documento é mantido à mão em openapi.json e embutido no binário.
package docs

import _ "embed"

//go:embed openapi.json
var OpenAPI []byte
