package ports

import (
	"context"

	"go.trai.ch/predicate/internal/core/domain"
)

// DocumentFetcher retrieves decision documents.
//
//go:generate go run go.uber.org/mock/mockgen -source=document.go -destination=mocks/mock_document.go -package=mocks
type DocumentFetcher interface {
	// FetchDocument returns the document for id, trying each configured source in order.
	FetchDocument(ctx context.Context, id string) (*domain.Document, error)
}

// TextExtractor turns document bytes into plain text.
type TextExtractor interface {
	// Extract returns the text of content. Near-empty output is reported as
	// domain.ErrLowConfidence rather than as an empty string.
	Extract(content []byte) (string, error)
}
