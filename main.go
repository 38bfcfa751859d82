// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the AssistBridge CLI.
package main

import (
	"assistbridge/cli/cmd"
)

func main() {
	cmd.Execute()
}
