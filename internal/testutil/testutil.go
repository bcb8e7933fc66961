// Package testutil holds helpers for tests that need live external
// backends. Tests using these helpers skip unless the matching environment
// variable is set.
package testutil

import (
	"os"
	"testing"
)

// GetRedisAddress returns the address of a Redis server for tests, or skips
// the test when FLOWLINE_TEST_REDIS_ADDR is not set.
func GetRedisAddress(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("FLOWLINE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FLOWLINE_TEST_REDIS_ADDR not set; skipping Redis-backed test")
	}
	return addr
}

// GetMongoURI returns the connection URI of a MongoDB server for tests, or
// skips the test when FLOWLINE_TEST_MONGO_URI is not set.
func GetMongoURI(t *testing.T) string {
	t.Helper()
	uri := os.Getenv("FLOWLINE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("FLOWLINE_TEST_MONGO_URI not set; skipping Mongo-backed test")
	}
	return uri
}
