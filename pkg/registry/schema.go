// pkg/registry/schema.go
package registry

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
)

// Handler serves one API Gateway proxy request.
type Handler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Job runs a scheduled handler outside of a request. The returned value is
// reported as the job result.
type Job func(ctx context.Context) (interface{}, error)

// Entry describes one handler.
type Entry struct {
	Name        string
	Method      string
	Path        string
	Description string
	Handler     Handler
	// Job is set for handlers that also run on a schedule.
	Job Job
}

// Descriptor is the serializable part of an Entry.
type Descriptor struct {
	Name        string `json:"name"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Scheduled   bool   `json:"scheduled"`
}

// Manifest lists every registered handler.
type Manifest struct {
	Version  string       `json:"version"`
	Handlers []Descriptor `json:"handlers"`
}
