// Package docs registers the TaskFlow OpenAPI document with swag so that
// gin-swagger can serve it under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Users", "description": "Registration and login"},
        {"name": "Boards", "description": "Board management"},
        {"name": "Tasks", "description": "Task management and assignment"},
        {"name": "Events", "description": "Server-sent change events and notifications"},
        {"name": "Health", "description": "Liveness"}
    ],
    "paths": {
        "/health": {"get": {"tags": ["Health"], "summary": "Liveness check", "responses": {"200": {"description": "OK"}}}},
        "/register": {"post": {"tags": ["Users"], "summary": "Register a new user", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}},
        "/login": {"post": {"tags": ["Users"], "summary": "Log in and receive a JWT", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/boards": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Boards"], "summary": "List the caller's boards", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Boards"], "summary": "Create a board", "responses": {"201": {"description": "Created"}}}
        },
        "/boards/{id}": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["Boards"], "summary": "Rename a board", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Boards"], "summary": "Delete a board and its tasks", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "No Content"}}}
        },
        "/boards/{id}/events": {"get": {"security": [{"BearerAuth": []}], "tags": ["Events"], "summary": "Stream change events of a board", "produces": ["text/event-stream"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/notifications/stream": {"get": {"security": [{"BearerAuth": []}], "tags": ["Events"], "summary": "Stream the caller's private notifications", "produces": ["text/event-stream"], "responses": {"200": {"description": "OK"}}}},
        "/tasks": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Tasks"], "summary": "List the tasks of a board", "parameters": [{"name": "boardId", "in": "query", "required": true, "type": "string"}, {"name": "priority", "in": "query", "type": "string", "enum": ["LOW", "MEDIUM", "HIGH"]}, {"name": "assigneeId", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Tasks"], "summary": "Create a task", "responses": {"201": {"description": "Created"}}}
        },
        "/tasks/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Tasks"], "summary": "Get a task", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Tasks"], "summary": "Replace a task", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["Tasks"], "summary": "Partially update a task", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Tasks"], "summary": "Archive a task", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "No Content"}}}
        },
        "/tasks/{id}/assign": {"patch": {"security": [{"BearerAuth": []}], "tags": ["Tasks"], "summary": "Assign or unassign a task", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "userId", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "TaskFlow API",
	Description:      "Boards, tasks, assignments and live change events.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
