// Package core provides filter input parsing and amount formatting.
//
// This file contains the boundary normalisers for user-supplied filter
// values. The filter engine assumes a valid numeric or nil threshold, so
// every raw string goes through here first.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidThreshold = errors.New("invalid amount threshold")

// ParseMinAmount converts a user-entered threshold to a filter value.
//
// Blank input clears the threshold (nil). Only plain decimal notation is
// accepted: digits with at most one dot (12.5) or comma (12,5) separator.
// Signs, exponents, hex floats and the NaN/Inf spellings are rejected with
// ErrInvalidThreshold.
//
// Examples:
//
//	ParseMinAmount("")      -> nil, nil
//	ParseMinAmount("10")    -> 10, nil
//	ParseMinAmount("12,50") -> 12.5, nil
//	ParseMinAmount("-1")    -> nil, ErrInvalidThreshold
func ParseMinAmount(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if !isDecimal(s) {
		return nil, ErrInvalidThreshold
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return nil, ErrInvalidThreshold
	}
	return &v, nil
}

// isDecimal reports whether s is ASCII digits with at most one '.'.
func isDecimal(s string) bool {
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// ParseCustomerID converts a selector value to a customer filter.
// Blank and "all" select every customer (nil).
func ParseCustomerID(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, ErrInvalidCustomerID
	}
	return &id, nil
}

// FormatAmount renders an amount with two decimals for display.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
