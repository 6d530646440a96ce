// Package model contains the core domain entities for userdesk.
package model

import (
	"fmt"
	"strings"
)

// StatusFilter narrows a directory listing by the active flag.
type StatusFilter string

const (
	StatusAll      StatusFilter = "all"
	StatusActive   StatusFilter = "active"
	StatusInactive StatusFilter = "inactive"
)

// ParseStatusFilter accepts the console names (all/active/inactive) and the
// wire form used by the list endpoint (1/0). An empty string means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return StatusAll, nil
	case "active", "1", "true":
		return StatusActive, nil
	case "inactive", "0", "false":
		return StatusInactive, nil
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

// Matches reports whether a record with the given active flag passes the filter.
func (f StatusFilter) Matches(active bool) bool {
	switch f {
	case StatusActive:
		return active
	case StatusInactive:
		return !active
	default:
		return true
	}
}

// WireValue returns the value sent as ?status= on the list endpoint, or ""
// when the filter is unrestricted.
func (f StatusFilter) WireValue() string {
	switch f {
	case StatusActive:
		return "1"
	case StatusInactive:
		return "0"
	}
	return ""
}

// Ack is the outcome of a successful mutation.
type Ack struct {
	ID      int    `json:"id,omitempty"`
	Message string `json:"message"`
}

// Envelope is the {status, data|message} wrapper written by the REST surface.
type Envelope struct {
	Status  bool   `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Pagination holds pagination parameters.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
