// Package apigw builds API Gateway proxy responses and adapts handlers to
// net/http.
package apigw

import (
	"context"
	"encoding/json"
	"net/http"

	apperrors "session-handlers/internal/common/errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
)

// HandlerFunc is the signature every request handler exposes.
type HandlerFunc func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Headers returns the headers sent with every response.
func Headers() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin": "*",
		"Content-Type":                "application/json",
	}
}

// JSON encodes body with the given status.
func JSON(status int, body interface{}) events.APIGatewayProxyResponse {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"success":false,"error":"failed to encode response"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    Headers(),
		Body:       string(data),
	}
}

// ErrorBody is the shape of every failed response.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Error writes a failure body with the given status and message.
func Error(status int, message string) events.APIGatewayProxyResponse {
	return JSON(status, ErrorBody{Success: false, Error: message})
}

// FromError maps err to a response. Client errors carry their own message;
// anything else is a 500 whose message is "<operation> failed: <err>".
func FromError(operation string, err error) events.APIGatewayProxyResponse {
	status := apperrors.HTTPStatus(err)
	if apperrors.IsClientError(err) {
		return Error(status, apperrors.Normalize(err).Message)
	}
	return Error(status, operation+" failed: "+err.Error())
}

// RequestID returns the gateway request id, or a fresh one for direct calls.
func RequestID(req events.APIGatewayProxyRequest) string {
	if req.RequestContext.RequestID != "" {
		return req.RequestContext.RequestID
	}
	return uuid.New().String()
}
