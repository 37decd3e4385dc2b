package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Skycast session API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	suggestionSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name":      map[string]string{"type": "string"},
			"region":    map[string]string{"type": "string"},
			"country":   map[string]string{"type": "string"},
			"latitude":  map[string]string{"description": "number or numeric string"},
			"longitude": map[string]string{"description": "number or numeric string"},
		},
	}

	sessionSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"search_query": map[string]string{"type": "string"},
			"coordinates": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"latitude":  map[string]string{"type": "number"},
					"longitude": map[string]string{"type": "number"},
				},
			},
			"weather": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"current": map[string]string{"type": "object"},
					"hourly": map[string]interface{}{
						"type":        "array",
						"description": "Up to 12 forecast points at 3-hour resolution",
						"items":       map[string]string{"type": "object"},
					},
					"daily": map[string]interface{}{
						"type":        "array",
						"description": "Up to 8 forecast points at 24-hour spacing",
						"items":       map[string]string{"type": "object"},
					},
				},
			},
			"address": map[string]string{"type": "string"},
			"suggestions": map[string]interface{}{
				"type":  "array",
				"items": map[string]string{"$ref": "#/components/schemas/LocationSuggestion"},
			},
			"loading": map[string]string{"type": "boolean"},
			"error":   map[string]string{"type": "string"},
		},
	}

	sessionResponse := map[string]interface{}{
		"description": "Current session state",
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"$ref": "#/components/schemas/SessionState"},
			},
		},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Skycast Session API",
			"description": "Location and weather session service: device geolocation with manual search fallback, current conditions, and hourly/daily forecast projections",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Skycast Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/session": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get session state",
					"description": "Returns a snapshot of the session: active coordinates, weather, address, suggestions, and flags",
					"responses": map[string]interface{}{
						"200": sessionResponse,
					},
				},
			},
			"/api/session/resolve": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Run a resolution cycle",
					"description": "Acquires the device position and populates weather and address for it. On position failure the session carries a user-facing error and awaits manual search. Safe to invoke repeatedly as the retry action.",
					"responses": map[string]interface{}{
						"200": sessionResponse,
					},
				},
			},
			"/api/session/search": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Edit the search query",
					"description": "One call per keystroke. Queries of three or more characters trigger a forward geocode; shorter queries clear the suggestion list without a request.",
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"query": map[string]string{"type": "string"},
									},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": sessionResponse,
						"400": map[string]string{"description": "Malformed request body"},
					},
				},
			},
			"/api/session/select": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Commit a suggestion",
					"description": "Makes the given suggestion the active location and fetches weather for it",
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]string{"$ref": "#/components/schemas/LocationSuggestion"},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": sessionResponse,
						"400": map[string]string{"description": "Malformed request body"},
					},
				},
			},
			"/api/session/watch": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Stream session state",
					"description": "Upgrades to a WebSocket that delivers a state snapshot after every session event, starting with the current state",
					"responses": map[string]interface{}{
						"101": map[string]string{"description": "Switching to WebSocket"},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": map[string]string{"description": "Service is healthy"},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"SessionState":       sessionSchema,
				"LocationSuggestion": suggestionSchema,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
