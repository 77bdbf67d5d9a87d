package http

import (
	"context"

	"github.com/oshinlather/image-to-excel-converter/internal/exporter"
	"github.com/oshinlather/image-to-excel-converter/internal/services"
	api "github.com/oshinlather/image-to-excel-converter/pkg/contracts/api/v1"
)

// ConverterService defines the session operations used by the HTTP handlers
type ConverterService interface {
	CreateSession(ctx context.Context, name string) (api.Session, error)
	GetSession(ctx context.Context, id string) (api.Session, error)
	DeleteSession(ctx context.Context, id string) error

	Extract(ctx context.Context, id string, in services.ExtractInput) (api.ExtractResponse, error)
	Recognize(ctx context.Context, id string, in services.RecognizeInput) (api.ExtractResponse, error)

	InsertRow(ctx context.Context, id string, at *int, values []string) (api.Session, error)
	DeleteRow(ctx context.Context, id string, row int) (api.Session, error)
	MoveRow(ctx context.Context, id string, from, to int) (api.Session, error)
	UpdateCell(ctx context.Context, id string, row, column int, value string) (api.Session, error)
	AddColumn(ctx context.Context, id, name, kind string, at *int) (api.Session, error)
	RemoveColumn(ctx context.Context, id string, column int) (api.Session, error)
	Clear(ctx context.Context, id string) (api.Session, error)

	Summary(ctx context.Context, id string) (api.Summary, error)
	Export(ctx context.Context, id, format string, withMetadata bool) (exporter.Document, error)
	WriteSheets(ctx context.Context, id, target, mode string) (api.SheetsResponse, error)
}

// HealthService defines the health endpoints' data source
type HealthService interface {
	HealthCheck(ctx context.Context) api.HealthResponse
	ReadinessCheck(ctx context.Context) api.HealthResponse
	LivenessCheck(ctx context.Context) api.HealthResponse
	Version() map[string]interface{}
}
