package bridge

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const specDefinitions = `
  "definitions": {
    "task": {
      "type": "object",
      "required": ["id", "status"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "title": { "type": "string" },
        "status": { "type": "string" }
      }
    },
    "changeRequest": {
      "type": "object",
      "required": ["id", "status"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "title": { "type": "string" },
        "status": { "enum": ["open", "addressed", ""] },
        "tasks": { "type": ["array", "null"], "items": { "$ref": "#/definitions/task" } }
      }
    },
    "spec": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "title": { "type": "string" },
        "owner": { "type": "string" },
        "completedAt": { "type": "string" },
        "archivedAt": { "type": "string" },
        "pendingTasks": { "type": "integer", "minimum": 0 },
        "pendingChecklistItems": { "type": "integer", "minimum": 0 },
        "changeRequests": { "type": ["array", "null"], "items": { "$ref": "#/definitions/changeRequest" } },
        "links": { "type": "object", "properties": { "docUrl": { "type": "string" } } }
      }
    },
    "patch": {
      "type": "object",
      "minProperties": 1,
      "properties": {
        "title": { "type": "string" },
        "owner": { "type": "string" },
        "completedAt": { "type": "string" },
        "archivedAt": { "type": "string" },
        "clearArchivedAt": { "type": "boolean" },
        "pendingTasks": { "type": "integer", "minimum": 0 },
        "pendingChecklistItems": { "type": "integer", "minimum": 0 },
        "changeRequests": { "type": "array", "items": { "$ref": "#/definitions/changeRequest" } },
        "docUrl": { "type": "string" }
      }
    }
  }`

const specIDRequestSchema = `{
  "type": "object",
  "required": ["requestId", "specId"],
  "properties": {
    "requestId": { "type": "string", "minLength": 1 },
    "specId": { "type": "string", "minLength": 1 }
  }
}`

const emptySchema = `{ "type": ["object", "null"] }`

var payloadSchemaJSON = map[string]string{
	TypeSubmitChanges: `{
  "type": "object",
  "required": ["requestId", "specId", "changes"],
  "properties": {
    "requestId": { "type": "string", "minLength": 1 },
    "specId": { "type": "string", "minLength": 1 },
    "changes": { "$ref": "#/definitions/patch" }
  },` + specDefinitions + `
}`,
	TypeArchive:   specIDRequestSchema,
	TypeUnarchive: specIDRequestSchema,
	TypeRefresh:   emptySchema,
	TypeResult: `{
  "type": "object",
  "required": ["requestId", "status"],
  "properties": {
    "requestId": { "type": "string", "minLength": 1 },
    "status": { "enum": ["success", "error"] },
    "message": { "type": "string" },
    "spec": { "$ref": "#/definitions/spec" },
    "lane": { "enum": ["review", "archived"] }
  },` + specDefinitions + `
}`,
	TypeReviewSpecs:   specListSchema,
	TypeArchivedSpecs: specListSchema,
	TypeSpecUpdated: `{
  "type": "object",
  "required": ["specId", "patch"],
  "properties": {
    "specId": { "type": "string", "minLength": 1 },
    "patch": { "$ref": "#/definitions/patch" }
  },` + specDefinitions + `
}`,
	TypeReset: emptySchema,
}

const specListSchema = `{
  "type": "object",
  "required": ["specs"],
  "properties": {
    "specs": { "type": ["array", "null"], "items": { "$ref": "#/definitions/spec" } }
  },` + specDefinitions + `
}`

var payloadSchemas = compileSchemas(payloadSchemaJSON)

func compileSchemas(sources map[string]string) map[string]*gojsonschema.Schema {
	schemas := make(map[string]*gojsonschema.Schema, len(sources))
	for msgType, src := range sources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			panic(fmt.Sprintf("payload schema for %s does not compile: %v", msgType, err))
		}
		schemas[msgType] = schema
	}
	return schemas
}
