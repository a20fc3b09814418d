package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Jadwal Sholat API",
        "description": "Prayer schedule, next prayer countdown, nearby mosques and schedule exports for Indonesian cities.",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Cities", "description": "City search proxy"},
        {"name": "Schedule", "description": "Monthly prayer schedules"},
        {"name": "Prayer", "description": "Next prayer, live countdown and corrected clock"},
        {"name": "Mosques", "description": "Nearby mosque search"},
        {"name": "Exports", "description": "PDF, PNG and CSV schedule exports"},
        {"name": "Ops", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/cities": {
            "get": {
                "tags": ["Cities"],
                "summary": "Search cities",
                "parameters": [
                    {"name": "q", "in": "query", "type": "string", "required": true, "description": "Keyword, at least 2 characters"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid keyword", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Upstream unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Month schedule for a city",
                "parameters": [
                    {"name": "city_id", "in": "query", "type": "string", "required": true},
                    {"name": "year", "in": "query", "type": "integer", "required": true, "description": "Clamped to 2000-2100"},
                    {"name": "month", "in": "query", "type": "integer", "required": true, "description": "Clamped to 1-12"}
                ],
                "responses": {
                    "200": {"description": "OK", "headers": {"X-Cache": {"type": "string", "description": "HIT or MISS"}}, "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Upstream unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/next-prayer": {
            "get": {
                "tags": ["Prayer"],
                "summary": "Next prayer for a city",
                "parameters": [
                    {"name": "city_id", "in": "query", "type": "string", "required": true},
                    {"name": "province", "in": "query", "type": "string", "description": "Selects WIB, WITA or WIT"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Schedule unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/countdown/stream": {
            "get": {
                "tags": ["Prayer"],
                "summary": "Live countdown as server-sent events",
                "produces": ["text/event-stream"],
                "parameters": [
                    {"name": "city_id", "in": "query", "type": "string", "required": true},
                    {"name": "province", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Stream of countdown events"}
                }
            }
        },
        "/time": {
            "get": {
                "tags": ["Prayer"],
                "summary": "Corrected server time",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mosques": {
            "get": {
                "tags": ["Mosques"],
                "summary": "Mosques around a point",
                "parameters": [
                    {"name": "lat", "in": "query", "type": "number", "required": true, "description": "-11..6"},
                    {"name": "lng", "in": "query", "type": "number", "required": true, "description": "95..141"},
                    {"name": "radius", "in": "query", "type": "integer", "description": "Metres, 100..10000, default 2000"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid coordinates", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "All Overpass endpoints failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Render a month schedule",
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a rendered export",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ExportRequest": {
            "type": "object",
            "required": ["city_id", "year", "month", "format"],
            "properties": {
                "city_id": {"type": "string"},
                "province": {"type": "string"},
                "year": {"type": "integer"},
                "month": {"type": "integer"},
                "format": {"type": "string", "enum": ["pdf", "png", "csv"]},
                "header": {
                    "type": "object",
                    "properties": {
                        "mosque_name": {"type": "string"},
                        "address": {"type": "string"},
                        "contact": {"type": "string"}
                    }
                }
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
