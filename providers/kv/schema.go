package kv

// packageSchema is the package schema served by GetSchema.
const packageSchema = `{
  "name": "kv",
  "displayName": "Key/Value",
  "description": "Manages key/value pairs in a local checkpoint store",
  "config": {
    "variables": {
      "namespace": {
        "type": "string",
        "description": "Prefix applied to every key"
      },
      "readOnly": {
        "type": "boolean",
        "description": "Reject create, update, and delete operations"
      }
    }
  },
  "resources": {
    "kv:index:Pair": {
      "description": "A single key/value pair",
      "inputProperties": {
        "key": {
          "type": "string",
          "description": "The key, at most 128 characters"
        },
        "value": {
          "type": "string",
          "description": "The stored value, at most 4096 characters"
        }
      },
      "requiredInputs": ["key"],
      "properties": {
        "key": {
          "type": "string",
          "description": "The fully qualified key"
        },
        "value": {
          "type": "string",
          "description": "The stored value"
        },
        "revision": {
          "type": "number",
          "description": "Monotonic revision counter, starting at 1"
        }
      },
      "required": ["key", "revision"]
    },
    "kv:index:Namespace": {
      "isComponent": true,
      "description": "A component that manages one Pair per entry of an object",
      "inputProperties": {
        "pairs": {
          "type": "object",
          "additionalProperties": {"type": "string"},
          "description": "Entries to materialize as Pair resources"
        }
      },
      "requiredInputs": ["pairs"],
      "properties": {
        "count": {
          "type": "number",
          "description": "Number of pairs managed"
        },
        "keys": {
          "type": "array",
          "items": {"type": "string"},
          "description": "Keys of the managed pairs"
        }
      },
      "required": ["count", "keys"]
    }
  },
  "functions": {
    "kv:index:lookup": {
      "description": "Looks a pair up by key",
      "inputs": {
        "properties": {
          "key": {"type": "string"}
        },
        "required": ["key"]
      },
      "outputs": {
        "properties": {
          "id": {"type": "string"},
          "key": {"type": "string"},
          "value": {"type": "string"},
          "revision": {"type": "number"}
        }
      }
    }
  }
}`
