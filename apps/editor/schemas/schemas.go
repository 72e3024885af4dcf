// Package schemas embeds the editor's loopback API description.
package schemas

import _ "embed"

// OpenAPISpec is the OpenAPI 3 document for the /api routes.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
