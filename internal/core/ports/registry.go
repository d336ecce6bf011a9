package ports

import (
	"context"

	"go.trai.ch/predicate/internal/core/domain"
)

// Registry is the client of the upstream device registry API.
//
//go:generate go run go.uber.org/mock/mockgen -source=registry.go -destination=mocks/mock_registry.go -package=mocks
type Registry interface {
	// Fetch returns the response for q, serving a fresh cached copy when one exists.
	Fetch(ctx context.Context, q domain.Query) (*domain.Response, error)

	// Device returns the clearance record for id.
	Device(ctx context.Context, id string) (*domain.DeviceRecord, *domain.Response, error)

	// SafetySignals returns the recall count for id.
	SafetySignals(ctx context.Context, id string) (int, *domain.Response, error)

	// SearchByProductCode lists clearance records sharing a product code.
	SearchByProductCode(ctx context.Context, code string, limit int) ([]domain.DeviceRecord, *domain.Response, error)

	// RevalidateDevice fetches the current record and recall count for id from the
	// network, bypassing the cache. It returns domain.ErrNotFound when the record is gone.
	RevalidateDevice(ctx context.Context, id string) (*domain.DeviceRecord, error)
}
