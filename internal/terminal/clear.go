// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package terminal provides small terminal helpers: clearing prompt lines and
// reading secrets without echo.
package terminal

import (
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/term"
)

// ClearPreviousLines clears textLength characters of previously printed text,
// plus the empty line left behind after the user pressed Enter.
func ClearPreviousLines(textLength int) {
	clearLines(os.Stdout, LinesUsed(textLength, width()))
}

// LinesUsed returns how many terminal rows text of the given length occupies.
func LinesUsed(textLength, termWidth int) int {
	if termWidth <= 0 {
		termWidth = 80
	}
	n := int(math.Ceil(float64(textLength) / float64(termWidth)))
	if n < 1 {
		n = 1
	}
	return n
}

func width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

func clearLines(w io.Writer, lines int) {
	// After Enter, cursor is on a NEW line below the input.
	toClear := lines + 1
	for i := 0; i < toClear; i++ {
		fmt.Fprint(w, "\r\x1b[2K") // Move to start and clear entire line
		if i < toClear-1 {
			fmt.Fprint(w, "\x1b[1A") // Move up one line (don't move up on last iteration)
		}
	}
}
