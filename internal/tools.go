//go:build tools

// Package tools pins test-time dependencies so they appear in go.mod.
package tools

import (
	_ "pgregory.net/rapid"
)
