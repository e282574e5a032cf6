// Package docs registers the OpenAPI description of the HTTP API with swag.
// Keep it in sync with the handler annotations in package httpapi.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "modelgate maintainers"},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness of the proxy process",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}}
            }
        },
        "/api/status": {
            "get": {
                "description": "Evaluates readiness on every call. Starts the daemon or a background model download when needed. Always 200.",
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Readiness of the daemon and model",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/api/whoami": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Client address as seen by this instance",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.WhoAmIResponse"}}}
            }
        },
        "/api/chat": {
            "post": {
                "description": "Starts the daemon and downloads the model first when needed. Downstream failures are reported with success=false and status 200.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Generate a completion with the pinned model",
                "parameters": [{
                    "description": "Prompt",
                    "name": "request",
                    "in": "body",
                    "required": true,
                    "schema": {"$ref": "#/definitions/types.ChatRequest"}
                }],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ChatResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ChatFailure"}}
                }
            }
        }
    },
    "definitions": {
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "healthy"},
                "instance_id": {"type": "string", "example": "web-1"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "ready": {"type": "boolean", "example": false},
                "status": {"type": "string", "example": "loading_model"},
                "message": {"type": "string"},
                "model": {"type": "string", "example": "gemma:2b"},
                "progress": {"type": "number", "example": 42.5},
                "instance_id": {"type": "string", "example": "web-1"}
            }
        },
        "types.WhoAmIResponse": {
            "type": "object",
            "properties": {
                "your_ip": {"type": "string", "example": "203.0.113.7"},
                "instance_id": {"type": "string", "example": "web-1"}
            }
        },
        "types.ChatRequest": {
            "type": "object",
            "properties": {
                "prompt": {"type": "string", "example": "Why is the sky blue?"}
            }
        },
        "types.ChatResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "response": {"type": "string"},
                "model": {"type": "string", "example": "gemma:2b"},
                "instance_id": {"type": "string", "example": "web-1"}
            }
        },
        "types.ChatFailure": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": false},
                "message": {"type": "string", "example": "Prompt is required"},
                "instance_id": {"type": "string", "example": "web-1"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "modelgate API",
	Description:      "Readiness-aware proxy in front of a local Ollama daemon.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
