package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the account service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
//
// cookieName is the configured session cookie and is written into the document.
func RegisterSwagger(rg *gin.Engine, cookieName string) {
	name, _ := json.Marshal(cookieName)
	doc := []byte(strings.Replace(swaggerJSON, `"$COOKIE_NAME"`, string(name), 1))

	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>accountdesk API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// OpenAPI document for the account endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "accountdesk", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "session": { "type": "http", "scheme": "bearer" }, "cookie": { "type": "apiKey", "in": "cookie", "name": "$COOKIE_NAME" } },
    "schemas": {
      "Error": { "type": "object", "properties": { "error": { "type": "object", "properties": { "type": {"type":"string"}, "message": {"type":"string"}, "details": {"type":"object"}, "request_id": {"type":"string"}, "timestamp": {"type":"string"} } } } },
      "Session": { "type": "object", "properties": { "sessionToken": {"type":"string"}, "uid": {"type":"string"}, "email": {"type":"string"}, "expiresAt": {"type":"string","format":"date-time"}, "redirect": {"type":"string"} } }
    }
  },
  "paths": {
    "/auth/register": {
      "post": {
        "summary": "Create an account and send a verification email",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"},"displayName":{"type":"string"}}}}}},
        "responses": { "201": { "description": "account created; redirect to /login" }, "400": { "description": "validation or provider rejection" }, "409": { "description": "email already in use" } }
      }
    },
    "/auth/login": {
      "post": {
        "summary": "Sign in with email and password",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "session issued; redirect to /dashboard", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Session" } } } }, "401": { "description": "provider rejected the credentials", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Error" } } } } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh the provider ID token behind the session", "security": [{"session": []}, {"cookie": []}], "responses": { "200": { "description": "session rotated" }, "401": { "description": "session ended" } } }
    },
    "/auth/logout": {
      "post": { "summary": "End the session and revoke provider tokens", "security": [{"session": []}, {"cookie": []}], "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/dashboard": {
      "get": { "summary": "Provider account and profile record", "security": [{"session": []}, {"cookie": []}], "responses": { "200": { "description": "dashboard data" }, "401": { "description": "no session; redirect to /login" } } }
    },
    "/api/v1/profile/name": {
      "patch": { "summary": "Change the display name", "security": [{"session": []}, {"cookie": []}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"displayName":{"type":"string"}}}}}}, "responses": { "200": { "description": "updated" }, "400": { "description": "invalid name" }, "500": { "description": "store write failed after provider write" } } }
    },
    "/api/v1/profile/verification": {
      "post": { "summary": "Resend the verification email", "security": [{"session": []}, {"cookie": []}], "responses": { "202": { "description": "sent" }, "409": { "description": "already verified" } } }
    },
    "/api/v1/profile/photo": {
      "post": { "summary": "Upload an avatar image", "security": [{"session": []}, {"cookie": []}], "requestBody": { "content": { "multipart/form-data": { "schema": {"type":"object","properties":{"photo":{"type":"string","format":"binary"}}}}}}, "responses": { "200": { "description": "photo URL" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
