//go:build tools

package tools

// Pins the mockery binary used to regenerate the testify mocks under
// internal/device/mocks. Run: go run github.com/vektra/mockery/v2
import (
	_ "github.com/vektra/mockery/v2"
)
