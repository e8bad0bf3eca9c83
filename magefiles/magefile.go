//go:build mage

// Package main provides build targets for the todo service using Mage.
//
// Usage:
//
//	mage build      Compile the todo-api binary to bin/
//	mage test       Run all tests, including the Postgres container test
//	mage testShort  Run tests without Docker-backed tests
//	mage lint       Run golangci-lint
//	mage run        Build and start the server
//	mage clean      Remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "todo-api"
	binaryDir  = "bin"
	cmdDir     = "./cmd/api"
)

// Build compiles the todo-api binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// TestShort runs tests in short mode, skipping the Postgres container test.
func TestShort() error {
	return sh.RunV("go", "test", "-short", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Run builds and starts the server with the current environment.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "serve")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}
