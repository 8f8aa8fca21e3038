package errors

import "net/http"

// Error codes shared with API clients.
const (
	CodeInvalidInput = "INVALID_INPUT"
	CodeInternal     = "INTERNAL_ERROR"

	// Graph: nodes
	CodeNodeNotFound      = "NODE_NOT_FOUND"
	CodeNodeAlreadyExists = "NODE_ALREADY_EXISTS"

	// Graph: relationships
	CodeRelationshipNotFound = "RELATIONSHIP_NOT_FOUND"
	CodeInvalidRelationship  = "INVALID_RELATIONSHIP"

	// Graph: store
	CodeGraphQuery      = "GRAPH_QUERY_ERROR"
	CodeGraphConnection = "GRAPH_CONNECTION_ERROR"
	CodeGraphTimeout    = "GRAPH_TIMEOUT"

	// Cache
	CodeInvalidTTL       = "INVALID_TTL"
	CodeCacheUnavailable = "CACHE_UNAVAILABLE"
)

// HTTPStatus maps an error type to the status code the HTTP layer responds with.
func HTTPStatus(err error) int {
	unifiedErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch unifiedErr.Type {
	case ErrorTypeValidation, ErrorTypeEndpointNotFound:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
