// Package testing provides test utilities, builders, and fixtures for unit tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - ConfigBuilder: Fluent builder for creating run configurations
//   - MockCluster, MockHost: testify mocks of the cluster API and host operations
//   - UpgradeFixture: mocks pre-configured for a successful rolling upgrade
//
// Usage:
//
//	cfg := testing.NewConfigBuilder().
//	    WithReadyTimeout(time.Second).
//	    Build()
//
//	fixture := testing.NewUpgradeFixture("v1.28.4", "1.29.3-00")
//	cluster, host := fixture.Successful("cp-1", "worker-1")
package testing
