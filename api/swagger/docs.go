// Package swagger registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o api/swagger
package swagger

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
        "/api/car-washes/{id}/free-slots": {
            "get": {
                "tags": ["schedule"],
                "summary": "Free slots",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "date", "in": "query", "required": true},
                    {"type": "integer", "name": "step", "in": "query"},
                    {"type": "integer", "name": "max", "in": "query"},
                    {"type": "boolean", "name": "capacity", "in": "query"},
                    {"type": "boolean", "name": "queue", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/pricing/quote": {
            "post": {
                "tags": ["pricing"],
                "summary": "Quote an order",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/bookings": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["bookings"],
                "summary": "Create booking",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/api/appointments": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["appointments"],
                "summary": "Create appointment",
                "responses": {"201": {"description": "Created"}, "409": {"description": "Insufficient stock"}}
            }
        },
        "/api/discount-usages/toggle": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["discounts"],
                "summary": "Toggle discount usages",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/workers/{id}/balance": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["workers"],
                "summary": "Worker balance",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/products/{id}/receive": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["inventory"],
                "summary": "Receive stock",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Car Wash API",
	Description:      "Scheduling, pricing, discounts, bookings, appointments, worker ledger and stock of car washes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
