package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/renovate-resolver/resolver/engine/infra/server/appstate"
	"github.com/renovate-resolver/resolver/engine/infra/server/router"
	"github.com/renovate-resolver/resolver/engine/resolve"
	"github.com/renovate-resolver/resolver/engine/schema"
	"github.com/renovate-resolver/resolver/pkg/logger"
	"github.com/renovate-resolver/resolver/pkg/version"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	swaggerModelsExpandDepthCollapsed = -1
	openAPIPath                       = "/api-docs.json"
	openAPIVersion                    = "3.0.3"
	contentTypeJSON                   = "application/json"
)

// setupSwaggerAndDocs wires up Swagger UI and the OpenAPI endpoint.
func setupSwaggerAndDocs(r *gin.Engine) {
	r.GET("/api-docs/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL(openAPIPath),
		ginSwagger.DefaultModelsExpandDepth(swaggerModelsExpandDepthCollapsed),
	))
	r.GET(openAPIPath, openAPIHandler(&openAPICache{}))
}

// openAPICache renders the document once per process; the schema it embeds never changes.
type openAPICache struct {
	once    sync.Once
	payload []byte
	err     error
}

func (c *openAPICache) get(v *schema.Validator) ([]byte, error) {
	c.once.Do(func() {
		c.payload, c.err = json.Marshal(BuildOpenAPIDocument(v.Document()))
	})
	return c.payload, c.err
}

// openAPIHandler serves the OpenAPI 3 document with the Renovate schema as the /resolve body.
func openAPIHandler(cache *openAPICache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		state, err := appstate.GetState(ctx)
		if err != nil {
			router.RespondWithError(c, http.StatusInternalServerError, resolve.MsgInternalError)
			return
		}
		v, err := state.Schemas.Get(ctx)
		if err != nil {
			log.Error("OpenAPI document unavailable", "error", err)
			router.RespondWithError(c, http.StatusInternalServerError, resolve.MsgSchemaNotReady)
			return
		}
		payload, err := cache.get(v)
		if err != nil {
			log.Error("Failed to marshal OpenAPI document", "error", err)
			router.RespondWithError(c, http.StatusInternalServerError, resolve.MsgInternalError)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
	}
}

// componentSchema reflects a Go response type into an inline JSON Schema.
func componentSchema(v any) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	s := r.Reflect(v)
	s.Version = ""
	return s
}

func jsonContent(schemaDoc any) map[string]any {
	return map[string]any{
		contentTypeJSON: map[string]any{"schema": schemaDoc},
	}
}

func refTo(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func errorResponse(description string) map[string]any {
	return map[string]any{
		"description": description,
		"content":     jsonContent(refTo("ErrorBody")),
	}
}

// BuildOpenAPIDocument assembles the API description around renovateSchema.
func BuildOpenAPIDocument(renovateSchema any) map[string]any {
	return map[string]any{
		"openapi": openAPIVersion,
		"info": map[string]any{
			"title":       "Renovate Resolver API",
			"version":     version.APIVersion,
			"description": "Validates Renovate configs and resolves their presets",
		},
		"paths": map[string]any{
			"/health": map[string]any{
				"get": map[string]any{
					"summary": "Health check",
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Service is healthy",
							"content":     jsonContent(refTo("StatusResponse")),
						},
					},
				},
			},
			"/readyz": map[string]any{
				"get": map[string]any{
					"summary": "Readiness check",
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Validator compiled",
							"content":     jsonContent(refTo("StatusResponse")),
						},
						"503": map[string]any{
							"description": "Validator not compiled yet",
							"content":     jsonContent(refTo("StatusResponse")),
						},
					},
				},
			},
			"/resolve": map[string]any{
				"post": map[string]any{
					"summary": "Resolve a Renovate config",
					"requestBody": map[string]any{
						"required": true,
						"content":  jsonContent(renovateSchema),
					},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Resolved config",
							"content":     jsonContent(map[string]any{"type": "object"}),
						},
						"400": errorResponse("Invalid Renovate config"),
						"413": errorResponse("Request body too large"),
						"429": errorResponse("Too many requests"),
						"500": errorResponse("Internal server error"),
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"ErrorBody":      componentSchema(&resolve.ErrorBody{}),
				"StatusResponse": componentSchema(&StatusResponse{}),
			},
		},
	}
}
