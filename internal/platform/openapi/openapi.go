// Package openapi describes the collection API as an OpenAPI 3.0 document
// derived from the registered resource schemas.
package openapi

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/hulubedeje/hms/internal/platform/schema"
)

// Collection is one resource endpoint to document.
type Collection struct {
	Path    string
	Kind    string
	Limit   int
	Filters []string
}

// Generator builds the OpenAPI document.
type Generator struct {
	registry    *schema.Registry
	collections []Collection
	title       string
	version     string
}

func NewGenerator(registry *schema.Registry, collections []Collection, title, version string) *Generator {
	return &Generator{registry: registry, collections: collections, title: title, version: version}
}

// GenerateSpec produces the OpenAPI 3.0 document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := make(map[string]interface{})
	components := map[string]interface{}{
		"Created":         createdSchema(),
		"HTTPError":       httpErrorSchema(),
		"ValidationError": validationErrorSchema(),
	}

	for _, col := range g.collections {
		s, ok := g.registry.Lookup(col.Kind)
		if !ok {
			continue
		}
		addSchema(components, s)

		ref := "#/components/schemas/" + col.Kind
		paths[col.Path] = map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "List " + col.Kind + " records",
				"operationId": "list" + col.Kind,
				"tags":        []string{col.Kind},
				"parameters":  listParameters(col),
				"responses": map[string]interface{}{
					"200": jsonResponse("Matching records in insertion order", map[string]interface{}{
						"type":  "array",
						"items": map[string]string{"$ref": ref},
					}),
					"500": refResponse("Store error", "HTTPError"),
				},
			},
			"post": map[string]interface{}{
				"summary":     "Create a " + col.Kind + " record",
				"operationId": "create" + col.Kind,
				"tags":        []string{col.Kind},
				"requestBody": map[string]interface{}{
					"required": true,
					"content": map[string]interface{}{
						"application/json": map[string]interface{}{
							"schema": map[string]string{"$ref": ref},
						},
					},
				},
				"responses": map[string]interface{}{
					"200": refResponse("Identifier of the new record", "Created"),
					"422": refResponse("Validation failure", "ValidationError"),
					"500": refResponse("Store error", "HTTPError"),
				},
			},
		}
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":   g.title,
			"version": g.version,
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": components,
		},
	}
}

func listParameters(col Collection) []map[string]interface{} {
	params := make([]map[string]interface{}, 0, len(col.Filters)+1)
	for _, name := range col.Filters {
		params = append(params, map[string]interface{}{
			"name":        name,
			"in":          "query",
			"required":    false,
			"description": "Exact match on " + name,
			"schema":      map[string]string{"type": "string"},
		})
	}
	params = append(params, map[string]interface{}{
		"name":        "limit",
		"in":          "query",
		"required":    false,
		"description": "Lowers the page size; never raises it",
		"schema": map[string]interface{}{
			"type":    "integer",
			"minimum": 1,
			"maximum": col.Limit,
		},
	})
	return params
}

// addSchema registers s and, recursively, the sub-record schemas it uses.
func addSchema(components map[string]interface{}, s *schema.Schema) {
	if _, done := components[s.Kind()]; done {
		return
	}

	props := make(map[string]interface{})
	var required []string
	for _, f := range s.Fields() {
		props[f.Name] = fieldSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
		if f.Type == schema.RecordList {
			addSchema(components, f.Of)
		}
	}
	sort.Strings(required)

	obj := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		obj["required"] = required
	}
	components[s.Kind()] = obj
}

func fieldSchema(f schema.Field) map[string]interface{} {
	var out map[string]interface{}
	switch f.Type {
	case schema.Integer:
		out = map[string]interface{}{"type": "integer", "format": "int64"}
	case schema.Float:
		out = map[string]interface{}{"type": "number", "format": "double"}
	case schema.Boolean:
		out = map[string]interface{}{"type": "boolean"}
	case schema.Date:
		out = map[string]interface{}{"type": "string", "format": "date"}
	case schema.Timestamp:
		out = map[string]interface{}{"type": "string", "format": "date-time"}
	case schema.Enum:
		out = map[string]interface{}{"type": "string", "enum": f.Values}
	case schema.Email:
		out = map[string]interface{}{"type": "string", "format": "email"}
	case schema.StringList:
		out = map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}}
	case schema.RecordList:
		out = map[string]interface{}{"type": "array", "items": map[string]string{"$ref": "#/components/schemas/" + f.Of.Kind()}}
	default:
		out = map[string]interface{}{"type": "string"}
	}

	if f.Nullable {
		out["nullable"] = true
	}
	if f.NonNegative {
		out["minimum"] = 0
	}
	if v, ok := f.StaticDefault(); ok {
		out["default"] = v
	}
	return out
}

func createdSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"required":   []string{"id"},
		"properties": map[string]interface{}{"id": map[string]string{"type": "string"}},
	}
}

func httpErrorSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"detail": map[string]string{"type": "string"}},
	}
}

func validationErrorSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"detail": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"loc":  map[string]interface{}{"type": "array", "items": map[string]interface{}{}},
						"msg":  map[string]string{"type": "string"},
						"type": map[string]string{"type": "string"},
					},
				},
			},
		},
	}
}

func jsonResponse(description string, body map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": body},
		},
	}
}

func refResponse(description, name string) map[string]interface{} {
	return jsonResponse(description, map[string]interface{}{"$ref": "#/components/schemas/" + name})
}

// ── Swagger UI ──────────────────────────────────────────────────────────

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Hulubedeje API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({ url: "/openapi.json", dom_id: '#swagger-ui', deepLinking: true })
  </script>
</body>
</html>`

func (g *Generator) RegisterRoutes(e *echo.Echo) {
	spec := g.GenerateSpec()
	e.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, spec)
	})
	e.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
