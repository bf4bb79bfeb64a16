// Package thunks contains pointers to functions that might be replaced in
// tests.
package thunks

import (
	"os"
	"time"
)

// UserHomeDir is an alias for os.UserHomeDir
var UserHomeDir func() (string, error) = os.UserHomeDir

// TimeNow is an alias for time.Now
var TimeNow func() time.Time = time.Now

// SetUpTest replaces thunks with stable test versions.
func SetUpTest() {
	TimeNow = func() time.Time {
		return time.Date(2024, 12, 2, 16, 0, 27, 4, time.UTC)
	}
	UserHomeDir = func() (string, error) {
		return "/home/operator", nil
	}
}

// TearDownTest restores the real implementations.
func TearDownTest() {
	TimeNow = time.Now
	UserHomeDir = os.UserHomeDir
}
