// Package docs documento OpenAPI de la API (formato swag).
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
        "/api/v1/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Iniciar sesión",
                "parameters": [
                    {"description": "email, password", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.TokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/auth/refresh": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Renovar access token con la cookie refresh_token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.TokenResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/auth/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Cerrar sesión (invalida el refresh token)",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.MessageResponse"}}
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Claims del access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.MeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/stock": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["stock"],
                "summary": "Stock por producto y sede",
                "parameters": [
                    {"type": "integer", "description": "filtrar por producto", "name": "product_id", "in": "query"},
                    {"type": "integer", "description": "filtrar por sede", "name": "location_id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/entity.StockRow"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/stock/summary": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["stock"],
                "summary": "Totales de stock por sede",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/entity.LocationSummary"}}}
                }
            }
        },
        "/api/v1/stock/transfer": {
            "post": {
                "security": [{"Bearer": []}],
                "description": "Atómico e idempotente por Idempotency-Key. Reenviar la misma clave devuelve 200 sin volver a mover stock.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["stock"],
                "summary": "Trasladar stock entre sedes",
                "parameters": [
                    {"type": "string", "description": "clave opaca del cliente", "name": "Idempotency-Key", "in": "header", "required": true},
                    {"description": "product_id, from_location_id, to_location_id, qty", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.TransferRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.MessageResponse"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/stock/receipt": {
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["stock"],
                "summary": "Registrar entrada de stock en una sede",
                "parameters": [
                    {"description": "product_id, location_id, qty", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.ReceiptRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/products": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Listar productos",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.ProductResponse"}}}
                }
            },
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Crear producto",
                "parameters": [
                    {"description": "sku, name, unit_cost", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateProductRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.ProductResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/locations": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["locations"],
                "summary": "Listar sedes",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.LocationResponse"}}}
                }
            },
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["locations"],
                "summary": "Crear sede",
                "parameters": [
                    {"description": "name", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateLocationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.LocationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/stock/transfers": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["stock"],
                "summary": "Historial de traslados",
                "parameters": [
                    {"type": "integer", "description": "máximo de registros (por defecto 50, máximo 500)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.TransferRecordResponse"}}}
                }
            }
        },
        "/api/v1/stock/report.pdf": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/pdf"],
                "tags": ["stock"],
                "summary": "Reporte PDF de stock",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}}
                }
            }
        }
    },
    "definitions": {
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "dto.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "dto.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "dto.TokenResponse": {
            "type": "object",
            "properties": {
                "accessToken": {"type": "string"}
            }
        },
        "dto.MeResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "role": {"type": "string"},
                "exp": {"type": "integer"}
            }
        },
        "dto.TransferRequest": {
            "type": "object",
            "properties": {
                "product_id": {"type": "integer"},
                "from_location_id": {"type": "integer"},
                "to_location_id": {"type": "integer"},
                "qty": {"type": "integer"}
            }
        },
        "dto.TransferRecordResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "product_id": {"type": "integer"},
                "from_location_id": {"type": "integer"},
                "to_location_id": {"type": "integer"},
                "qty": {"type": "integer"},
                "idempotency_key": {"type": "string"},
                "created_by": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "dto.ReceiptRequest": {
            "type": "object",
            "properties": {
                "product_id": {"type": "integer"},
                "location_id": {"type": "integer"},
                "qty": {"type": "integer"}
            }
        },
        "dto.CreateProductRequest": {
            "type": "object",
            "required": ["sku", "name"],
            "properties": {
                "sku": {"type": "string"},
                "name": {"type": "string"},
                "unit_cost": {"type": "string"}
            }
        },
        "dto.ProductResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "sku": {"type": "string"},
                "name": {"type": "string"},
                "unit_cost": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "dto.CreateLocationRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"}
            }
        },
        "dto.LocationResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "entity.StockRow": {
            "type": "object",
            "properties": {
                "product_id": {"type": "integer"},
                "product_name": {"type": "string"},
                "location_id": {"type": "integer"},
                "location_name": {"type": "string"},
                "quantity": {"type": "integer"},
                "unit_cost": {"type": "number"},
                "stock_value": {"type": "number"}
            }
        },
        "entity.LocationSummary": {
            "type": "object",
            "properties": {
                "location_id": {"type": "integer"},
                "location_name": {"type": "string"},
                "products": {"type": "integer"},
                "units": {"type": "integer"},
                "value": {"type": "number"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "description": "Bearer <access_token>",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}
`

// SwaggerInfo información de la API expuesta en /api/v1/openapi.json y /docs.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:4000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Stock Transfer API",
	Description:      "Traslados de stock entre sedes con idempotencia, auditoría y autenticación JWT.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
