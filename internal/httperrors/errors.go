// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors classifies HTTP/network failures and renders them for people.
package httperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
)

// Category is the coarse cause of a network failure.
type Category string

const (
	CategoryTimeout  Category = "timeout"
	CategoryDNS      Category = "dns"
	CategoryRefused  Category = "connection refused"
	CategoryTLS      Category = "tls"
	CategoryServer   Category = "server error"
	CategoryNetwork  Category = "network"
	CategoryCanceled Category = "canceled"
)

// Classify detects common error types (timeout, DNS, connection refused, TLS, server errors).
// Order matters: a TLS handshake timeout is reported as a timeout.
func Classify(err error) Category {
	if err == nil {
		return ""
	}
	switch {
	case isCanceledError(err):
		return CategoryCanceled
	case isTimeoutError(err):
		return CategoryTimeout
	case isDNSError(err):
		return CategoryDNS
	case isConnectionRefusedError(err):
		return CategoryRefused
	case isSSLError(err):
		return CategoryTLS
	case isServerError(err.Error()):
		return CategoryServer
	}
	return CategoryNetwork
}

// Describe returns a one-line "<category>: <detail>" description of err.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", Classify(err), innermost(err).Error())
}

// FormatNetworkError shows a user-friendly explanation of err and returns it wrapped.
func FormatNetworkError(err error, context string) error {
	if err == nil {
		return nil
	}

	displayErrorMessage(err, context)

	return fmt.Errorf("network error: %w", err)
}

// innermost unwraps url.Error so descriptions don't repeat method and URL.
func innermost(err error) error {
	var uErr *url.Error
	if errors.As(err, &uErr) && uErr.Err != nil {
		return uErr.Err
	}
	return err
}

// displayErrorMessage shows a formatted error message to the user based on error type.
func displayErrorMessage(err error, context string) {
	switch Classify(err) {
	case CategoryTimeout:
		showTimeoutError(context)
	case CategoryDNS:
		showDNSError(context)
	case CategoryRefused:
		showConnectionRefusedError(context)
	case CategoryTLS:
		showSSLError(context)
	case CategoryServer:
		showServerError(context)
	default:
		showGenericError(context, err.Error())
	}
}

func isCanceledError(err error) bool {
	return errors.Is(err, context.Canceled)
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "ssl") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

// isServerError checks if the error indicates a server-side problem (5xx errors).
func isServerError(errStr string) bool {
	lower := strings.ToLower(errStr)
	return strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "service unavailable") ||
		strings.Contains(lower, "gateway timeout")
}

func showTimeoutError(context string) {
	pterm.Printf("⏱️  Connection timeout while %s\n", context)
	pterm.Println()
	pterm.Println("The server took too long to respond. This could mean:")
	pterm.Println("  • Slow internet connection")
	pterm.Println("  • Server is under heavy load")
	pterm.Println("  • Network firewall is blocking the connection")
	pterm.Println()
}

func showDNSError(context string) {
	pterm.Printf("🌐 Cannot resolve server address while %s\n", context)
	pterm.Println()
	pterm.Println("Please check:")
	pterm.Println("  • Your internet connection is working")
	pterm.Println("  • DNS settings are correct")
	pterm.Println("  • No DNS-level blocking (corporate firewall, proxy)")
	pterm.Println()
}

func showConnectionRefusedError(context string) {
	pterm.Printf("🚫 Connection refused while %s\n", context)
	pterm.Println()
	pterm.Println("Nothing is accepting connections at that address. This could mean:")
	pterm.Println("  • The assistant service is not running")
	pterm.Println("  • Wrong server address or port in config.toml")
	pterm.Println("  • Firewall is blocking the connection")
	pterm.Println()
}

func showSSLError(context string) {
	pterm.Printf("🔒 Secure connection failed while %s\n", context)
	pterm.Println()
	pterm.Println("Cannot establish a secure HTTPS connection. This could mean:")
	pterm.Println("  • SSL/TLS certificate issue")
	pterm.Println("  • Network proxy interfering with HTTPS")
	pterm.Println("  • System clock is incorrect")
	pterm.Println()
}

func showServerError(context string) {
	pterm.Printf("⚠️  Server error while %s\n", context)
	pterm.Println()
	pterm.Println("The remote server encountered an internal error.")
	pterm.Println("Please try again in a few minutes.")
	pterm.Println()
}

func showGenericError(context string, errDetails string) {
	pterm.Printf("❌ Network failure while %s\n", context)
	pterm.Println()

	if errDetails != "" {
		shortErr := errDetails
		if len(shortErr) > 100 {
			shortErr = shortErr[:100] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", shortErr)
		pterm.Println()
	}
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
