// env_config_test.go: Environment variable expansion tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"strings"
	"testing"
)

// TestExpandEnvironmentVariables_BasicExpansion tests basic environment variable expansion.
func TestExpandEnvironmentVariables_BasicExpansion(t *testing.T) {
	t.Setenv("TEST_VAR1", "value1")
	t.Setenv("TEST_VAR2", "value2")
	t.Setenv("TEST_EMPTY", "")
	t.Setenv("TEST_SPECIAL", "value with spaces & symbols!")

	options := EnvConfigOptions{ValidateValues: true}

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"no placeholders", "plain value", "plain value"},
		{"simple variable expansion", "${TEST_VAR1}", "value1"},
		{"variable with unused default", "${TEST_VAR1:-fallback}", "value1"},
		{"missing variable with default", "${TEST_MISSING:-fallback}", "fallback"},
		{"empty variable uses default", "${TEST_EMPTY:-fallback}", "fallback"},
		{"multiple variables", "${TEST_VAR1}-${TEST_VAR2}", "value1-value2"},
		{"embedded in text", "http://${TEST_MISSING:-localhost}:8080/path", "http://localhost:8080/path"},
		{"special characters", "${TEST_SPECIAL}", "value with spaces & symbols!"},
		{"missing without default", "[${TEST_MISSING}]", "[]"},
		{"dollar without braces is literal", "$TEST_VAR1", "$TEST_VAR1"},
		{"malformed placeholder is literal", "${1INVALID}", "${1INVALID}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ExpandEnvironmentVariables(tc.input, options)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

// TestExpandEnvironmentVariables_ResolutionOrder checks prefix, overrides and defaults.
func TestExpandEnvironmentVariables_ResolutionOrder(t *testing.T) {
	t.Setenv("APP_HOST", "prefixed")
	t.Setenv("HOST", "plain")
	t.Setenv("PORT", "9000")

	options := EnvConfigOptions{
		Prefix:    "APP_",
		Overrides: map[string]string{"PORT": "override", "TEST_OWNER": "override-user"},
		Defaults:  map[string]string{"TEST_OWNER": "default-user", "TEST_REGION": "eu"},
	}

	tests := map[string]string{
		"${HOST}":                   "prefixed",
		"${PORT}":                   "9000",
		"${TEST_OWNER:-inline}":     "override-user",
		"${TEST_REGION:-inline}":    "inline",
		"${TEST_REGION}":            "eu",
		"${TEST_NOTHING:-fallback}": "fallback",
	}
	for input, want := range tests {
		got, err := ExpandEnvironmentVariables(input, options)
		if err != nil {
			t.Errorf("%s: unexpected error %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("%s: expected %q, got %q", input, want, got)
		}
	}
}

// TestExpandEnvironmentVariables_FailOnMissing checks error propagation.
func TestExpandEnvironmentVariables_FailOnMissing(t *testing.T) {
	options := EnvConfigOptions{FailOnMissing: true}

	_, err := ExpandEnvironmentVariables("a ${TEST_DEFINITELY_MISSING} b", options)
	if err == nil {
		t.Fatal("Expected an error for a missing variable")
	}
	if !HasErrorCode(err, ErrCodeEnvExpansion) {
		t.Errorf("Expected %s, got %v", ErrCodeEnvExpansion, err)
	}
	if !strings.Contains(err.Error(), "TEST_DEFINITELY_MISSING") {
		t.Errorf("Error should name the variable: %v", err)
	}

	got, err := ExpandEnvironmentVariables("${TEST_DEFINITELY_MISSING:-ok}", options)
	if err != nil || got != "ok" {
		t.Errorf("Inline default should satisfy FailOnMissing, got %q, %v", got, err)
	}
}

// TestExpandEnvironmentVariables_SecurityValidation rejects unsafe values.
func TestExpandEnvironmentVariables_SecurityValidation(t *testing.T) {
	t.Setenv("TEST_CONTROL", "bad\x07bell")
	t.Setenv("TEST_LONG", strings.Repeat("x", maxEnvValueLength+1))
	t.Setenv("TEST_MULTILINE", "line1\nline2\tend")

	validating := EnvConfigOptions{ValidateValues: true}

	for _, input := range []string{"${TEST_CONTROL}", "${TEST_LONG}"} {
		if _, err := ExpandEnvironmentVariables(input, validating); !HasErrorCode(err, ErrCodeEnvExpansion) {
			t.Errorf("%s: expected validation error, got %v", input, err)
		}
	}

	if got, err := ExpandEnvironmentVariables("${TEST_MULTILINE}", validating); err != nil || got != "line1\nline2\tend" {
		t.Errorf("Whitespace controls are allowed, got %q, %v", got, err)
	}

	if _, err := ExpandEnvironmentVariables("${TEST_CONTROL}", EnvConfigOptions{}); err != nil {
		t.Errorf("Validation disabled should accept any value: %v", err)
	}

	nul := EnvConfigOptions{ValidateValues: true, Overrides: map[string]string{"NUL": "a\x00b"}}
	if _, err := ExpandEnvironmentVariables("${NUL}", nul); !HasErrorCode(err, ErrCodeEnvExpansion) {
		t.Errorf("Expected null byte rejection, got %v", err)
	}
}

// TestExpandStrings expands a slice in place and stops at the first error.
func TestExpandStrings(t *testing.T) {
	t.Setenv("TEST_DIR", "conf")

	values := []string{"${TEST_DIR}/", "static/*.xml"}
	if err := expandStrings(values, EnvConfigOptions{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if values[0] != "conf/" || values[1] != "static/*.xml" {
		t.Errorf("Unexpected expansion: %v", values)
	}

	bad := []string{"${TEST_NOT_THERE}"}
	if err := expandStrings(bad, EnvConfigOptions{FailOnMissing: true}); err == nil {
		t.Error("Expected error")
	}
}

func TestDefaultEnvConfigOptions(t *testing.T) {
	opts := DefaultEnvConfigOptions()
	if opts.Prefix != "BEANPLUGINS_" || !opts.ValidateValues || opts.FailOnMissing {
		t.Errorf("Unexpected defaults: %+v", opts)
	}
	if opts.Defaults == nil || opts.Overrides == nil {
		t.Error("Default maps should be initialized")
	}
}
