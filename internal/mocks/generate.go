// Package mocks provides generated mock implementations for testing the
// correlation pipeline.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the port interfaces in internal/core. To regenerate after interface
// changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mock for CacheRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/ivis-ai/rag-gateway/internal/core CacheRepository

// Generate mock for Publisher interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=publisher_mock.go github.com/ivis-ai/rag-gateway/internal/core Publisher

// Generate mock for ChatHistoryRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=chat_history_repository_mock.go github.com/ivis-ai/rag-gateway/internal/core ChatHistoryRepository
