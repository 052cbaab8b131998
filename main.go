// Package main provides the entry point for klrsim.
// klrsim is a cycle-accurate simulator of the 951 KLR ignition and boost
// controller.
//
// For the full CLI, use: go run ./cmd/klrsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("klrsim - 951 KLR Controller Simulator")
	fmt.Println("MCS-48 core driven by a crank-angle event scheduler")
	fmt.Println("")
	fmt.Println("Usage: klrsim [flags] <command> [args]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run      Run a ROM against the engine model")
	fmt.Println("  sweep    Run one session per engine speed in parallel")
	fmt.Println("  script   Drive a session from a Lua script")
	fmt.Println("  disasm   Disassemble a ROM image")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/klrsim --help' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/klrsim' instead.")
	}
}
