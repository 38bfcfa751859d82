// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"assistbridge/cli/internal/errors"
)

// GRPCErrorType represents the category of gRPC error
type GRPCErrorType int

const (
	GRPCErrorUnknown GRPCErrorType = iota
	GRPCErrorNetwork
	GRPCErrorTimeout
	GRPCErrorInternal
	GRPCErrorUnavailable
	GRPCErrorRejected
)

// ParseGRPCError categorizes a gRPC error message
func ParseGRPCError(errMsg string) GRPCErrorType {
	lower := strings.ToLower(errMsg)

	if strings.Contains(lower, "rst_stream") || strings.Contains(lower, "connection reset") {
		return GRPCErrorNetwork
	}
	if strings.Contains(lower, "internal_error") || strings.Contains(lower, "code = internal") {
		return GRPCErrorInternal
	}
	if strings.Contains(lower, "unavailable") || strings.Contains(lower, "connection refused") {
		return GRPCErrorUnavailable
	}
	if strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout") {
		return GRPCErrorTimeout
	}
	if strings.Contains(lower, "invalidargument") || strings.Contains(lower, "code = invalid") {
		return GRPCErrorRejected
	}

	return GRPCErrorUnknown
}

// classifyCode maps a gRPC status code to the error type used for rendering.
func classifyCode(c codes.Code) GRPCErrorType {
	switch c {
	case codes.Unavailable:
		return GRPCErrorUnavailable
	case codes.DeadlineExceeded:
		return GRPCErrorTimeout
	case codes.Internal, codes.DataLoss:
		return GRPCErrorInternal
	case codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound, codes.AlreadyExists:
		return GRPCErrorRejected
	case codes.Aborted:
		return GRPCErrorNetwork
	}
	return GRPCErrorUnknown
}

// FromGRPC converts an error returned by a gRPC call into a typed error.
// Unavailable becomes Transport, deadline expiry becomes Timeout and every other
// status is a Protocol error. Errors that already carry a kind pass through.
func FromGRPC(method string, err error) error {
	if err == nil {
		return nil
	}
	if errors.KindOf(err) != "" {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.Timeout, method, err)
	}
	st, ok := status.FromError(err)
	if !ok {
		return errors.Wrap(errors.Transport, method, err)
	}
	switch st.Code() {
	case codes.Unavailable:
		return errors.Wrap(errors.Transport, method, err)
	case codes.DeadlineExceeded:
		return errors.Wrap(errors.Timeout, method, err)
	}
	return errors.Wrap(errors.Protocol, method, err)
}

// FormatStreamError formats a chat stream error in a user-friendly way
func FormatStreamError(err error) string {
	errMsg := ""
	errType := GRPCErrorUnknown
	if err != nil {
		errMsg = Mask(err.Error())
		var se interface{ GRPCStatus() *status.Status }
		if stderrors.As(err, &se) {
			errType = classifyCode(se.GRPCStatus().Code())
		}
		if errType == GRPCErrorUnknown {
			errType = ParseGRPCError(errMsg)
		}
		switch errors.KindOf(err) {
		case errors.Timeout:
			errType = GRPCErrorTimeout
		case errors.Transport:
			if errType == GRPCErrorUnknown {
				errType = GRPCErrorUnavailable
			}
		}
	}

	var builder strings.Builder

	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Chat Interrupted"))
	builder.WriteString("\n\n")

	switch errType {
	case GRPCErrorNetwork:
		builder.WriteString("The connection to the assistant service was interrupted unexpectedly.\n")
		builder.WriteString("This usually happens when:\n")
		builder.WriteString("  • The service restarted while answering\n")
		builder.WriteString("  • A local firewall or proxy closed the connection\n")

	case GRPCErrorInternal:
		builder.WriteString("An internal error occurred in the assistant service.\n")
		builder.WriteString("This could mean:\n")
		builder.WriteString("  • The selected model failed to load\n")
		builder.WriteString("  • There was a temporary problem processing your prompt\n")

	case GRPCErrorUnavailable:
		builder.WriteString("The assistant service is not reachable.\n")
		builder.WriteString("Possible reasons:\n")
		builder.WriteString("  • The service is not running\n")
		builder.WriteString("  • backend_addr in config.toml points to the wrong port\n")

	case GRPCErrorTimeout:
		builder.WriteString("The assistant service did not answer in time.\n")
		builder.WriteString("This could be due to:\n")
		builder.WriteString("  • A large model still warming up\n")
		builder.WriteString("  • call_timeout in config.toml being too short\n")

	case GRPCErrorRejected:
		builder.WriteString("The assistant service rejected the request.\n")
		builder.WriteString("Check the arguments and try again.\n")

	default:
		builder.WriteString("The chat session was interrupted.\n")
	}

	builder.WriteString("\n")
	builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Run 'assistbridge invoke llm_health_check' to check the service"))
	builder.WriteString("\n")

	if strings.TrimSpace(errMsg) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + errMsg))
	}

	return builder.String()
}

// PresentStreamError displays a formatted stream error
func PresentStreamError(err error) {
	fmt.Println()
	fmt.Println(FormatStreamError(err))
	fmt.Println()
}
