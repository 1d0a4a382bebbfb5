package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Doculan API",
        "description": "Multi-tenant document storage and role based access control for e-signature workflows.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Authentication", "description": "Sessions and tokens"},
        {"name": "Documents", "description": "Encrypted per-tenant document storage"},
        {"name": "Roles", "description": "Organisation and default role permissions"},
        {"name": "Folders", "description": "Folder assignments per role"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "security": [],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Invalid credentials"}}
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate refresh token",
                "security": [],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Expired or revoked"}}
            }
        },
        "/auth/me": {
            "get": {"tags": ["Authentication"], "summary": "Current user", "responses": {"200": {"description": "OK"}}}
        },
        "/documents": {
            "get": {
                "tags": ["Documents"],
                "summary": "List documents",
                "parameters": [{"name": "folder", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Documents"],
                "summary": "Upload a document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "path", "in": "formData", "type": "string"},
                    {"name": "document_id", "in": "formData", "type": "string"},
                    {"name": "overwrite", "in": "formData", "type": "boolean"}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "File exists"}}
            }
        },
        "/documents/{id}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Get document index entry",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not in index"}}
            },
            "put": {
                "tags": ["Documents"],
                "summary": "Replace a document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "file_name", "in": "formData", "type": "string"},
                    {"name": "path", "in": "formData", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not in index"}}
            },
            "delete": {
                "tags": ["Documents"],
                "summary": "Delete a document",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not in index"}}
            }
        },
        "/documents/{id}/content": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download decrypted content",
                "produces": ["application/octet-stream"],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "File"}, "502": {"description": "Blob retrieval failed"}}
            }
        },
        "/documents/{id}/url": {
            "get": {
                "tags": ["Documents"],
                "summary": "Issue a signed download link",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/documents/download": {
            "get": {
                "tags": ["Documents"],
                "summary": "Redeem a signed download link",
                "security": [],
                "parameters": [{"name": "token", "in": "query", "type": "string", "required": true}],
                "responses": {"200": {"description": "File"}, "401": {"description": "Invalid or expired token"}}
            }
        },
        "/documents/move": {
            "post": {
                "tags": ["Documents"],
                "summary": "Move documents into a folder",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoveDocumentsRequest"}}],
                "responses": {"200": {"description": "Per document results"}}
            }
        },
        "/documents/export": {
            "get": {
                "tags": ["Documents"],
                "summary": "Export the document listing",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "folder", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/documents/audit": {
            "post": {
                "tags": ["Documents"],
                "summary": "Audit the document index for missing blobs",
                "responses": {"202": {"description": "Queued"}}
            }
        },
        "/roles": {
            "get": {"tags": ["Roles"], "summary": "List organisation roles", "responses": {"200": {"description": "OK"}}},
            "put": {
                "tags": ["Roles"],
                "summary": "Create or replace an organisation role",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RolePermissionDocument"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid pattern"}}
            }
        },
        "/roles/{name}": {
            "delete": {
                "tags": ["Roles"],
                "summary": "Delete an organisation role",
                "parameters": [{"name": "name", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/roles/defaults": {
            "get": {"tags": ["Roles"], "summary": "List default roles", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Roles"], "summary": "Create or replace a default role", "responses": {"200": {"description": "OK"}}}
        },
        "/folders/assignments": {
            "post": {
                "tags": ["Folders"],
                "summary": "Assign folders to a role",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignFoldersRequest"}}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/folders/assignments/{role}": {
            "get": {
                "tags": ["Folders"],
                "summary": "Get folders assigned to a role",
                "parameters": [{"name": "role", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/folders/assignments/{role}/{mappingId}": {
            "delete": {
                "tags": ["Folders"],
                "summary": "Remove a folder mapping",
                "parameters": [
                    {"name": "role", "in": "path", "type": "string", "required": true},
                    {"name": "mappingId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown mapping"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "MoveDocumentsRequest": {
            "type": "object",
            "required": ["document_ids"],
            "properties": {
                "document_ids": {"type": "array", "items": {"type": "string"}},
                "new_folder": {"type": "string"}
            }
        },
        "APIPermission": {
            "type": "object",
            "properties": {"method": {"type": "string"}, "url_pattern": {"type": "string", "example": "/documents/{id}"}}
        },
        "RolePermissionDocument": {
            "type": "object",
            "required": ["role_name"],
            "properties": {
                "role_name": {"type": "string"},
                "api_permissions": {"type": "array", "items": {"$ref": "#/definitions/APIPermission"}},
                "ui_permissions": {"type": "array", "items": {"type": "string"}}
            }
        },
        "AssignFoldersRequest": {
            "type": "object",
            "required": ["role", "paths"],
            "properties": {"role": {"type": "string"}, "paths": {"type": "array", "items": {"type": "string"}}}
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
                "meta": {"type": "object"},
                "request_id": {"type": "string"}
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
