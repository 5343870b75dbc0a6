package services

// backupSchema is the JSON Schema every imported document must satisfy before
// it is decoded. Extra properties are tolerated so newer exports still load.
const backupSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "exportedAt", "userId", "projects"],
  "properties": {
    "version": {"type": "string"},
    "exportedAt": {"type": "number"},
    "userId": {"type": "string", "minLength": 1},
    "projects": {
      "type": "array",
      "items": {"$ref": "#/definitions/project"}
    }
  },
  "definitions": {
    "node": {
      "type": "object",
      "required": ["id", "type", "data", "position"],
      "properties": {
        "id": {"type": "string", "maxLength": 255},
        "type": {"enum": ["oval", "rectangle", "diamond", "parallelogram"]},
        "data": {
          "type": "object",
          "required": ["label"],
          "properties": {"label": {"type": "string"}, "code": {"type": "string"}}
        },
        "position": {
          "type": "object",
          "required": ["x", "y"],
          "properties": {"x": {"type": "number"}, "y": {"type": "number"}}
        }
      }
    },
    "edge": {
      "type": "object",
      "required": ["id", "source", "target"],
      "properties": {
        "id": {"type": "string", "maxLength": 255},
        "source": {"type": "string", "maxLength": 255},
        "target": {"type": "string", "maxLength": 255},
        "label": {"type": "string"}
      }
    },
    "history": {
      "type": "object",
      "required": ["id", "action", "changedBy", "changedAt"],
      "properties": {
        "id": {"type": "string", "minLength": 1, "maxLength": 64},
        "action": {"enum": ["create", "update", "delete", "restore", "version"]},
        "changedBy": {"type": "string"},
        "changedAt": {"type": "number"},
        "previousValues": {"type": ["object", "null"]}
      }
    },
    "project": {
      "type": "object",
      "required": ["id", "name", "code", "nodes", "edges", "updatedAt", "isDeleted"],
      "properties": {
        "id": {"type": "string", "minLength": 1, "maxLength": 255},
        "name": {"type": "string", "minLength": 1, "maxLength": 255},
        "code": {"type": "string", "maxLength": 1000000},
        "nodes": {"type": "array", "maxItems": 500, "items": {"$ref": "#/definitions/node"}},
        "edges": {"type": "array", "maxItems": 1000, "items": {"$ref": "#/definitions/edge"}},
        "updatedAt": {"type": "number"},
        "isDeleted": {"type": "boolean"},
        "deletedAt": {"type": ["number", "null"]},
        "shareId": {"type": ["string", "null"]},
        "isPublic": {"type": "boolean"},
        "sharedBy": {"type": ["string", "null"]},
        "sharedAt": {"type": ["number", "null"]},
        "history": {"type": "array", "items": {"$ref": "#/definitions/history"}}
      }
    }
  }
}`
