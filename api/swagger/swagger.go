package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ClassTrack API",
        "description": "Training class records service: capture, validation, reporting and exports.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Classes", "description": "Training class records"},
        {"name": "Refdata", "description": "Lookup lists backing capture forms"},
        {"name": "Exports", "description": "Queued CSV/PDF exports"}
    ],
    "paths": {
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List class records",
                "parameters": [
                    {"name": "client_id", "in": "query", "type": "integer"},
                    {"name": "class_type", "in": "query", "type": "string"},
                    {"name": "class_types", "in": "query", "type": "string", "description": "Comma-separated class types"},
                    {"name": "agent_id", "in": "query", "type": "integer"},
                    {"name": "supervisor_id", "in": "query", "type": "integer"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Create class record",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClassRecord"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate class code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Business rule violation", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}": {
            "get": {
                "tags": ["Classes"],
                "summary": "Get class record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Classes"],
                "summary": "Update class record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClassRecord"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Classes"],
                "summary": "Delete class record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/classes/{id}/notes": {
            "post": {
                "tags": ["Classes"],
                "summary": "Append note to class record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AppendNoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/schedule": {
            "put": {
                "tags": ["Classes"],
                "summary": "Replace class schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleData"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/class-code/{code}": {
            "get": {
                "tags": ["Classes"],
                "summary": "Get class record by class code",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/class-codes/generate": {
            "get": {
                "tags": ["Classes"],
                "summary": "Suggest the next free class code",
                "parameters": [
                    {"name": "client_id", "in": "query", "required": true, "type": "integer"},
                    {"name": "class_type", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statistics/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "Aggregate statistics over class records",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/upcoming": {
            "get": {
                "tags": ["Classes"],
                "summary": "Classes starting within the coming days",
                "parameters": [
                    {"name": "days", "in": "query", "type": "integer", "description": "Window in days, defaults to 30"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/refdata/clients": {
            "get": {
                "tags": ["Refdata"],
                "summary": "List client companies",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/refdata/class-subjects": {
            "get": {
                "tags": ["Refdata"],
                "summary": "List class subjects",
                "parameters": [
                    {"name": "class_type", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/refdata/holidays": {
            "get": {
                "tags": ["Refdata"],
                "summary": "List public holidays",
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/generate": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a class export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/status/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Check export job progress",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "ClassRecord": {
            "type": "object",
            "properties": {
                "class_id": {"type": "integer"},
                "client_id": {"type": "integer"},
                "site_id": {"type": "string"},
                "class_type": {"type": "string"},
                "class_subject": {"type": "string"},
                "class_code": {"type": "string"},
                "class_duration": {"type": "integer"},
                "original_start_date": {"type": "string"},
                "delivery_date": {"type": "string"},
                "qa_visit_dates": {"type": "string"},
                "stop_restart_dates": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/StopRestart"}
                },
                "seta_funded": {"type": "boolean"},
                "seta": {"type": "string"},
                "exam_class": {"type": "boolean"},
                "exam_type": {"type": "string"},
                "class_agent": {"type": "integer"},
                "initial_class_agent": {"type": "integer"},
                "project_supervisor_id": {"type": "integer"},
                "backup_agent_ids": {"type": "array", "items": {"type": "integer"}},
                "learner_ids": {"type": "array", "items": {"type": "integer"}},
                "schedule_data": {"$ref": "#/definitions/ScheduleData"},
                "class_notes_data": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ClassNote"}
                },
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            },
            "required": ["client_id", "class_type", "class_code", "class_duration", "original_start_date"]
        },
        "ScheduleData": {
            "type": "object",
            "properties": {
                "days": {"type": "array", "items": {"type": "string"}},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "break_times": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/BreakTime"}
                }
            }
        },
        "BreakTime": {
            "type": "object",
            "properties": {
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            }
        },
        "ClassNote": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "note": {"type": "string"},
                "date": {"type": "string"},
                "user": {"type": "string"}
            }
        },
        "StopRestart": {
            "type": "object",
            "properties": {
                "stop_date": {"type": "string"},
                "restart_date": {"type": "string"}
            }
        },
        "AppendNoteRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "note": {"type": "string"}
            },
            "required": ["type", "note"]
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["class_list", "class_roster"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "class_id": {"type": "integer"},
                "client_id": {"type": "integer"},
                "class_type": {"type": "string"}
            },
            "required": ["type", "format"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
