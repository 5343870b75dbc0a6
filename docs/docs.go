// Package docs registers the OpenAPI document served under /docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/projects": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["projects"],
                "summary": "List live projects, newest first",
                "parameters": [
                    {"type": "string", "name": "userId", "in": "query", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "string", "name": "cursor", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.APIResponse"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["projects"],
                "summary": "Save a new project",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.CreateProjectRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/types.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.APIResponse"}}
                }
            }
        },
        "/projects/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["projects"],
                "summary": "Replace some fields of a project",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "userId", "in": "query", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ProjectUpdate"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.APIResponse"}}}
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["projects"],
                "summary": "Share or unshare a project",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "userId", "in": "query", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.PatchProjectRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.APIResponse"}}}
            }
        },
        "/projects/{id}/versions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["versions"],
                "summary": "Snapshot the current project content",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "userId", "in": "query", "required": true},
                    {"name": "body", "in": "body", "schema": {"$ref": "#/definitions/models.VersionInput"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/types.APIResponse"}}}
            }
        },
        "/backup": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["backup"],
                "summary": "Download every project of a user with its history",
                "parameters": [
                    {"type": "string", "name": "userId", "in": "query", "required": true},
                    {"type": "string", "name": "format", "in": "query"},
                    {"type": "boolean", "name": "metadata", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/backup/import": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "tags": ["backup"],
                "summary": "Restore projects from a backup document",
                "parameters": [
                    {"type": "string", "name": "userId", "in": "query", "required": true},
                    {"type": "string", "name": "onConflict", "in": "query"},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.APIResponse"}}}
            }
        },
        "/share/{shareToken}": {
            "get": {
                "tags": ["share"],
                "summary": "Read a shared project without signing in",
                "parameters": [{"type": "string", "name": "shareToken", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.APIResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.APIResponse"}}
                }
            }
        },
        "/diagram": {
            "post": {
                "tags": ["ai"],
                "summary": "Generate a flowchart from source code",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object", "properties": {"code": {"type": "string"}}}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.APIResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.APIResponse"}}
                }
            }
        },
        "/convert": {
            "post": {
                "tags": ["ai"],
                "summary": "Generate source code from a flowchart",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.APIResponse"}}}
            }
        },
        "/trace": {
            "post": {
                "tags": ["trace"],
                "summary": "Walk a flowchart from its first node and return every step",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.APIResponse"}}}
            }
        }
    },
    "definitions": {
        "types.APIError": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}, "details": {}}
        },
        "types.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"$ref": "#/definitions/types.APIError"},
                "meta": {"type": "object", "properties": {"request_id": {"type": "string"}}}
            }
        },
        "types.CreateProjectRequest": {
            "type": "object",
            "properties": {"userId": {"type": "string"}, "project": {"$ref": "#/definitions/models.ProjectUpdate"}}
        },
        "types.PatchProjectRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {"action": {"type": "string", "enum": ["share", "unshare"]}}
        },
        "models.ProjectUpdate": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "maxLength": 255},
                "code": {"type": "string"},
                "nodes": {"type": "array", "items": {"type": "object"}},
                "edges": {"type": "array", "items": {"type": "object"}}
            }
        },
        "models.VersionInput": {
            "type": "object",
            "properties": {"description": {"type": "string", "maxLength": 1000}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Logic Flow Engine API",
	Description:      "Flowchart projects with versions, audit history, backups and AI-assisted code conversion.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
