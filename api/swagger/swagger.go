package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Clinical Trial Registry API",
        "description": "Register, update and query clinical trials uploaded as JSON documents",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Trials", "description": "Clinical trial registration and lookup"},
        {"name": "Health", "description": "Liveness and readiness probes"}
    ],
    "paths": {
        "/trials": {
            "get": {
                "tags": ["Trials"],
                "summary": "List clinical trials",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer", "minimum": 1},
                    {"name": "size", "in": "query", "type": "integer", "minimum": 1, "maximum": 100}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TrialListEnvelope"}},
                    "400": {"description": "Invalid pagination", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            },
            "post": {
                "tags": ["Trials"],
                "summary": "Register a clinical trial from a JSON file",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "headers": {"Location": {"type": "string"}}, "schema": {"$ref": "#/definitions/TrialEnvelope"}},
                    "400": {"description": "Invalid upload or trial data", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "409": {"description": "Trial id already exists", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            },
            "put": {
                "tags": ["Trials"],
                "summary": "Replace a clinical trial from a JSON file",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TrialEnvelope"}},
                    "400": {"description": "Invalid upload or trial data", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "404": {"description": "Trial id does not exist", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/trials/{trialId}": {
            "get": {
                "tags": ["Trials"],
                "summary": "Get a clinical trial",
                "parameters": [
                    {"name": "trialId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TrialEnvelope"}},
                    "404": {"description": "Trial not found", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/trials/status": {
            "get": {
                "tags": ["Trials"],
                "summary": "List clinical trials with a given status",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "required": true, "enum": ["NotStarted", "Ongoing", "Completed"]},
                    {"name": "page", "in": "query", "type": "integer", "minimum": 1},
                    {"name": "size", "in": "query", "type": "integer", "minimum": 1, "maximum": 100}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TrialListEnvelope"}},
                    "400": {"description": "Invalid status or pagination", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/trials/export": {
            "get": {
                "tags": ["Trials"],
                "summary": "Export clinical trials",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "required": true, "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string", "enum": ["NotStarted", "Ongoing", "Completed"]}
                ],
                "responses": {
                    "200": {"description": "Attachment", "schema": {"type": "file"}},
                    "400": {"description": "Invalid format or status", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Trial": {
            "type": "object",
            "properties": {
                "trialId": {"type": "string", "maxLength": 450},
                "title": {"type": "string"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date", "x-nullable": true},
                "participants": {"type": "integer", "minimum": 0},
                "status": {"type": "string", "enum": ["NotStarted", "Ongoing", "Completed"]},
                "duration": {"type": "integer"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "size": {"type": "integer"},
                "totalCount": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}}
            }
        },
        "TrialEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/Trial"},
                "meta": {"type": "object"}
            }
        },
        "TrialListEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/Trial"}},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "ErrorEnvelope": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/APIError"}
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
