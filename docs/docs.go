// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Service health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/worker.healthResponse"}}
                }
            }
        },
        "/notes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "List notes, newest first",
                "parameters": [
                    {"type": "string", "description": "Only this user's notes", "name": "user_id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Note"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            },
            "post": {
                "description": "Title or content is required. organize=true generates title, category and insights.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "Create a note",
                "parameters": [
                    {"description": "Note", "name": "note", "in": "body", "required": true, "schema": {"$ref": "#/definitions/worker.createNoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Note"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/worker.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            }
        },
        "/notes/cluster": {
            "post": {
                "description": "Answers 200 with a skipped reason when embeddings are unavailable.",
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "Cluster all of a user's notes into topics",
                "parameters": [
                    {"type": "string", "description": "User to cluster", "name": "user_id", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/notes.ClusterResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/worker.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            }
        },
        "/notes/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "Get a note",
                "parameters": [
                    {"type": "string", "description": "Note ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Note"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            },
            "put": {
                "description": "Only fields present in the body change. A content change re-embeds the note.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "Update a note",
                "parameters": [
                    {"type": "string", "description": "Note ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "update", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.NoteUpdate"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Note"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/worker.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "Delete a note",
                "parameters": [
                    {"type": "string", "description": "Note ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            }
        },
        "/notes/{id}/complete": {
            "post": {
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "Mark a note as a completed task",
                "parameters": [
                    {"type": "string", "description": "Note ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Note"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/worker.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            }
        },
        "/notes/{id}/uncomplete": {
            "post": {
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "Reopen a completed task",
                "parameters": [
                    {"type": "string", "description": "Note ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Note"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/worker.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            }
        },
        "/notes/{id}/related": {
            "get": {
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "Notes similar to a note, with common themes",
                "parameters": [
                    {"type": "string", "description": "Note ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Owner of the note", "name": "user_id", "in": "query", "required": true},
                    {"type": "integer", "description": "Maximum related notes (default 5)", "name": "match_count", "in": "query"},
                    {"type": "number", "description": "Minimum cosine similarity (default 0.3)", "name": "match_threshold", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/search.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/worker.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/worker.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            }
        },
        "/advice": {
            "post": {
                "description": "Provider failures come back as 200 with an error field.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["advice"],
                "summary": "Pick the task to do first",
                "parameters": [
                    {"description": "Text with tasks", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/worker.adviceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/llm.Advice"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            }
        },
        "/user/stats/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["user"],
                "summary": "Streaks and counters for a user",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.UserStats"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            }
        },
        "/user/activity/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["user"],
                "summary": "Dump counts for the last 7 days, oldest first",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/worker.activityDay"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            }
        },
        "/user/achievements/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["user"],
                "summary": "Achievement catalog with unlock state",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.AchievementStatus"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/worker.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "llm.Advice": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "reason": {"type": "string"},
                "recommended_task": {"type": "string"},
                "tasks": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.AchievementStatus": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "title": {"type": "string"},
                "type": {"type": "string", "enum": ["first_dump", "week_straight", "task_complete"]},
                "unlocked": {"type": "boolean"},
                "unlocked_at": {"type": "string"}
            }
        },
        "models.Note": {
            "type": "object",
            "properties": {
                "category": {"type": "string", "enum": ["Health", "Work", "Personal", "Ideas", "Tasks", "Learning"]},
                "cluster_label": {"type": "integer"},
                "completed_at": {"type": "string"},
                "content": {"type": "string"},
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "insights": {"type": "array", "items": {"type": "string"}},
                "is_completed": {"type": "boolean"},
                "is_task": {"type": "boolean"},
                "title": {"type": "string"},
                "updated_at": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "models.NoteUpdate": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "content": {"type": "string"},
                "is_task": {"type": "boolean"},
                "organize": {"type": "boolean"},
                "title": {"type": "string"}
            }
        },
        "models.RelatedNote": {
            "type": "object",
            "properties": {
                "note": {"$ref": "#/definitions/models.Note"},
                "similarity": {"type": "number"}
            }
        },
        "models.UserStats": {
            "type": "object",
            "properties": {
                "current_streak": {"type": "integer"},
                "last_activity_date": {"type": "string"},
                "longest_streak": {"type": "integer"},
                "tasks_completed": {"type": "integer"},
                "total_dumps": {"type": "integer"},
                "updated_at": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "notes.ClusterResult": {
            "type": "object",
            "properties": {
                "clusters": {"type": "integer"},
                "labelled": {"type": "integer"},
                "labels": {"type": "object", "additionalProperties": {"type": "integer"}},
                "noise": {"type": "integer"},
                "skipped": {"type": "string"},
                "total": {"type": "integer"},
                "user_id": {"type": "string"}
            }
        },
        "search.Result": {
            "type": "object",
            "properties": {
                "common_themes": {"type": "array", "items": {"type": "string"}},
                "related_notes": {"type": "array", "items": {"$ref": "#/definitions/models.RelatedNote"}},
                "source_note": {"$ref": "#/definitions/models.Note"}
            }
        },
        "worker.activityDay": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "dump_count": {"type": "integer"}
            }
        },
        "worker.adviceRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {
                "text": {"type": "string", "maxLength": 20000}
            }
        },
        "worker.createNoteRequest": {
            "type": "object",
            "properties": {
                "category": {"type": "string", "enum": ["Health", "Work", "Personal", "Ideas", "Tasks", "Learning"]},
                "content": {"type": "string", "maxLength": 100000},
                "is_task": {"type": "boolean"},
                "organize": {"type": "boolean"},
                "title": {"type": "string", "maxLength": 500},
                "user_id": {"type": "string", "maxLength": 128}
            }
        },
        "worker.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "worker.healthResponse": {
            "type": "object",
            "properties": {
                "database": {"type": "string"},
                "embedding": {"type": "boolean"},
                "llm": {"type": "boolean"},
                "sse_clients": {"type": "integer"},
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "braindump API",
	Description:      "Capture freeform notes, organize them with a language model and find related thoughts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
