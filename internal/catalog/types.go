// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package catalog queries the external MCP server catalog over HTTP and keeps a
// local SQLite cache of its answers.
package catalog

import (
	"assistbridge/cli/internal/errors"
)

// Query selects one page of catalog entries.
type Query struct {
	PageNumber int    `json:"pageNumber"`
	PageSize   int    `json:"pageSize"`
	Category   string `json:"category"`
	Search     string `json:"search"`
}

// Validate rejects non-positive paging values.
func (q Query) Validate() error {
	if q.PageNumber <= 0 {
		return errors.New(errors.InvalidInput, "page_number must be positive")
	}
	if q.PageSize <= 0 {
		return errors.New(errors.InvalidInput, "page_size must be positive")
	}
	return nil
}

// Filter is the server-side filter. Category is omitted from the wire when empty.
type Filter struct {
	Category string `json:"category,omitempty"`
	IsHosted bool   `json:"is_hosted"`
}

// request is the PUT body sent for list queries.
type request struct {
	Direction  int    `json:"direction"`
	Filter     Filter `json:"filter"`
	PageNumber int    `json:"page_number"`
	PageSize   int    `json:"page_size"`
	Search     string `json:"search"`
}

// newRequest builds the envelope for q.
func newRequest(q Query) request {
	return request{
		Direction:  1,
		Filter:     Filter{Category: q.Category, IsHosted: true},
		PageNumber: q.PageNumber,
		PageSize:   q.PageSize,
		Search:     q.Search,
	}
}
