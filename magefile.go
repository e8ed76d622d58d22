//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified
var Default = Build

// Build compiles wpimport into bin/.
func Build() error {
	fmt.Println("Building...")
	return sh.Run("go", "build", "-o", "./bin/wpimport", "./cmd/wpimport")
}

// Test runs all tests.
func Test() error {
	fmt.Println("Running Tests...")
	return sh.Run("go", "test", "./...")
}

// Integration runs the Postgres tests against TEST_PG_DSN.
func Integration() error {
	if os.Getenv("TEST_PG_DSN") == "" {
		return fmt.Errorf("TEST_PG_DSN is not set")
	}
	fmt.Println("Running Postgres integration tests...")
	return sh.RunV("go", "test", "-v", "-run", "Integration", "./internal/storage/postgres/...")
}

// Clean removes build output.
func Clean() error {
	fmt.Println("Cleaning...")
	return os.RemoveAll("bin")
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println("Running go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Check runs formatting and vet checks.
func Check() error {
	mg.Deps(Fmt, Vet)
	return nil
}

// Fmt runs go fmt ./...
func Fmt() error {
	fmt.Println("Running go fmt...")
	return sh.Run("go", "fmt", "./...")
}

// Vet runs go vet ./...
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.Run("go", "vet", "./...")
}
