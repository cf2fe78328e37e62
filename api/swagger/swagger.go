// Package swagger carries the hand-maintained OpenAPI document.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SlotSwap API",
        "description": "Time-slot trading with real-time swap notifications",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Signup, login and profile"},
        {"name": "Events", "description": "Personal time slots"},
        {"name": "Swaps", "description": "Swap negotiation lifecycle"},
        {"name": "Realtime", "description": "Websocket channel and presence"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ws": {
            "get": {
                "tags": ["Realtime"],
                "summary": "Open the realtime notification channel",
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "description": "Access token"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/api/auth/signup": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a new user",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/api/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a user",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List my slots",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Events"],
                "summary": "Create a slot",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/api/events/export": {
            "get": {
                "tags": ["Events"],
                "summary": "Export my slots as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/events/{eventId}": {
            "put": {
                "tags": ["Events"],
                "summary": "Update a slot",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not the owner"},
                    "409": {"description": "Slot locked by a pending swap"}
                }
            },
            "delete": {
                "tags": ["Events"],
                "summary": "Delete a slot",
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Slot locked by a pending swap"}
                }
            }
        },
        "/api/events/{eventId}/toggle-swappable": {
            "patch": {
                "tags": ["Events"],
                "summary": "Toggle a slot between BUSY and SWAPPABLE",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Slot locked by a pending swap"}
                }
            }
        },
        "/api/swaps/available": {
            "get": {
                "tags": ["Swaps"],
                "summary": "List other users' swappable slots",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/swaps/request": {
            "post": {
                "tags": ["Swaps"],
                "summary": "Request a swap",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Slot not available for swapping"}
                }
            }
        },
        "/api/swaps/requests": {
            "get": {
                "tags": ["Swaps"],
                "summary": "List my swap requests grouped by direction",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/swaps/request/{requestId}/respond": {
            "post": {
                "tags": ["Swaps"],
                "summary": "Accept or reject a swap request",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not the recipient"},
                    "409": {"description": "Request already settled"}
                }
            }
        },
        "/api/swaps/request/{requestId}/cancel": {
            "delete": {
                "tags": ["Swaps"],
                "summary": "Cancel a pending swap request",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Request already settled"}
                }
            }
        },
        "/api/presence": {
            "get": {
                "tags": ["Realtime"],
                "summary": "Connected users snapshot",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
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
