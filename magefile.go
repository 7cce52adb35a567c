//go:build mage
// +build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Format runs gofmt on all Go files.
func Format() error {
	fmt.Println("Running gofmt...")
	return sh.RunV("gofmt", "-w", ".")
}

// Vet runs go vet on all packages.
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.RunV("go", "vet", "./...")
}

// Test runs all tests.
func Test() error {
	fmt.Println("Running tests...")
	return sh.RunV("go", "test", "./...")
}

// Build builds the takc binary.
func Build() error {
	fmt.Println("Building takc...")
	return sh.RunV("go", "build", "-o", "bin/takc", "./cmd/takc")
}

// PreCommit runs format, vet, test, and build in sequence.
func PreCommit() error {
	fmt.Println("Running pre-commit checks...")
	mg.Deps(Format)
	mg.Deps(Vet)
	mg.Deps(Test)
	mg.Deps(Build)
	fmt.Println("all pre-commit checks passed")
	return nil
}

// CI runs the same checks as PreCommit.
func CI() error {
	return PreCommit()
}

// Clean removes build artifacts.
func Clean() error {
	fmt.Println("Cleaning build artifacts...")
	return sh.Run("rm", "-rf", "bin")
}

// Default target runs PreCommit.
var Default = PreCommit
