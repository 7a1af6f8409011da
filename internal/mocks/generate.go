// Package mocks provides generated mock implementations for the port
// interfaces, used by service and handler unit tests.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks.
// To regenerate after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	source := mocks.NewMockSnapshotSource(ctrl)
//	source.EXPECT().Load(gomock.Any(), gomock.Any()).Return(snap, nil)
package mocks

// Generate mocks for the port interfaces: SnapshotSource (permission facts),
// TokenVerifier (inbound credential verification), CredentialExchanger
// (delegated-credential exchange), and StorageGateway (downstream document
// store).
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=ports_mock.go github.com/spaarke-dev/spaarke-sub016/internal/ports SnapshotSource,TokenVerifier,CredentialExchanger,StorageGateway
