// Package docs holds the Swagger description of the pipeline API.
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
        "/articles": {
            "get": {
                "description": "List analyzed articles in publish date order, optionally filtered by keyword",
                "produces": ["application/json"],
                "tags": ["articles"],
                "summary": "List analyzed articles",
                "parameters": [
                    {"type": "string", "description": "Keyword matched against the body (case-sensitive) or the URL", "name": "keyword", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.ArticleResponse"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/articles/{title}": {
            "get": {
                "description": "Get a single analyzed article, including its cleaned body, by its key",
                "produces": ["application/json"],
                "tags": ["articles"],
                "summary": "Get an article",
                "parameters": [
                    {"type": "string", "description": "Article key (the title under the default key policy)", "name": "title", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ArticleResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/chart": {
            "get": {
                "description": "Render an HTML scatter of average sentence polarity against publish date",
                "produces": ["text/html"],
                "tags": ["charts"],
                "summary": "Polarity chart",
                "parameters": [
                    {"type": "string", "description": "Keyword filter", "name": "keyword", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "HTML page", "schema": {"type": "string"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/runs": {
            "get": {
                "description": "List the most recent runs, newest first",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List pipeline runs",
                "parameters": [
                    {"type": "integer", "default": 20, "description": "Maximum number of runs", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.RunResponse"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Queue a crawl and/or analyze run",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Trigger a pipeline run",
                "parameters": [
                    {"description": "Steps to run, default crawl then analyze", "name": "run", "in": "body", "schema": {"$ref": "#/definitions/dto.CreateRunRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/dto.RunResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/runs/{id}": {
            "get": {
                "description": "Get a single run and its report",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get a pipeline run",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.RunResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.ArticleResponse": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "title": {"type": "string"},
                "url": {"type": "string"},
                "source_domain": {"type": "string"},
                "description": {"type": "string"},
                "authors": {"type": "array", "items": {"type": "string"}},
                "date_published": {"type": "string"},
                "average_sentence_polarity": {"type": "number"},
                "scored": {"type": "boolean"},
                "main_text": {"type": "string"}
            }
        },
        "dto.CreateRunRequest": {
            "type": "object",
            "properties": {
                "steps": {"type": "array", "items": {"type": "string", "enum": ["crawl", "analyze"]}}
            }
        },
        "dto.RunResponse": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "trigger": {"type": "string"},
                "status": {"type": "string", "enum": ["queued", "running", "completed", "failed"]},
                "report": {"type": "object"},
                "error_message": {"type": "string"},
                "started_at": {"type": "string"},
                "completed_at": {"type": "string"}
            }
        },
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "COVID Policy Sentiment API",
	Description:      "Analyzed COVID-19 policy news articles, polarity charts and pipeline runs.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
