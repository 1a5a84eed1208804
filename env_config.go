// env_config.go: Environment variable expansion for descriptor values
//
// Property values and manager configuration strings may reference the
// environment with ${VAR} or ${VAR:-default}. Expansion is opt-in through
// ManagerConfig.ExpandEnv.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// maxEnvValueLength bounds expanded values.
const maxEnvValueLength = 4096

var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// EnvConfigOptions configures environment variable expansion.
//
// Example:
//
//	options := EnvConfigOptions{
//	    Prefix:         "BEANPLUGINS_",
//	    FailOnMissing:  true,
//	    ValidateValues: true,
//	}
type EnvConfigOptions struct {
	// Prefix is tried first: ${HOST} looks up PREFIX_HOST, then HOST.
	Prefix string `json:"prefix" yaml:"prefix"`

	// FailOnMissing turns an unresolvable variable into an error instead of
	// an empty string.
	FailOnMissing bool `json:"fail_on_missing" yaml:"fail_on_missing"`

	// ValidateValues rejects values with NUL or control characters and
	// values longer than 4096 bytes.
	ValidateValues bool `json:"validate_values" yaml:"validate_values"`

	// Defaults apply when neither the environment nor an inline default
	// provides a value.
	Defaults map[string]string `json:"defaults,omitempty" yaml:"defaults,omitempty"`

	// Overrides win over inline and global defaults, not over the environment.
	Overrides map[string]string `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// DefaultEnvConfigOptions returns the default expansion options.
func DefaultEnvConfigOptions() EnvConfigOptions {
	return EnvConfigOptions{
		Prefix:         "BEANPLUGINS_",
		FailOnMissing:  false,
		ValidateValues: true,
		Defaults:       make(map[string]string),
		Overrides:      make(map[string]string),
	}
}

// ExpandEnvironmentVariables replaces ${VAR} and ${VAR:-default}
// placeholders in input.
//
// Variable resolution order:
//  1. Environment variable with Prefix
//  2. Environment variable without prefix
//  3. Overrides
//  4. Inline default
//  5. Defaults
//  6. Empty string, or an error when FailOnMissing is set
func ExpandEnvironmentVariables(input string, options EnvConfigOptions) (string, error) {
	if !strings.Contains(input, "${") {
		return input, nil
	}

	var firstErr error
	result := variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		if firstErr != nil {
			return match
		}
		submatches := variablePattern.FindStringSubmatch(match)
		varName := submatches[1]
		inlineDefault := submatches[3]

		expanded, err := expandSingleEnvironmentVariable(varName, inlineDefault, options)
		if err != nil {
			firstErr = err
			return match
		}
		return expanded
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

func expandSingleEnvironmentVariable(varName, inlineDefault string, options EnvConfigOptions) (string, error) {
	if options.Prefix != "" {
		if value, ok := os.LookupEnv(options.Prefix + varName); ok && value != "" {
			return validateEnvValue(varName, value, options)
		}
	}
	if value, ok := os.LookupEnv(varName); ok && value != "" {
		return validateEnvValue(varName, value, options)
	}
	if value, exists := options.Overrides[varName]; exists {
		return validateEnvValue(varName, value, options)
	}
	if inlineDefault != "" {
		return validateEnvValue(varName, inlineDefault, options)
	}
	if value, exists := options.Defaults[varName]; exists {
		return validateEnvValue(varName, value, options)
	}

	if options.FailOnMissing {
		return "", NewEnvExpansionError(varName, "not set and no default given")
	}
	return "", nil
}

func validateEnvValue(varName, value string, options EnvConfigOptions) (string, error) {
	if !options.ValidateValues {
		return value, nil
	}
	if strings.Contains(value, "\x00") {
		return "", NewEnvExpansionError(varName, "value contains a null byte")
	}
	if len(value) > maxEnvValueLength {
		return "", NewEnvExpansionError(varName, fmt.Sprintf("value too long: %d bytes (max %d)", len(value), maxEnvValueLength))
	}
	for i, r := range value {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return "", NewEnvExpansionError(varName, fmt.Sprintf("control character at position %d", i))
		}
	}
	return value, nil
}

// expandStrings expands every element of values in place.
func expandStrings(values []string, options EnvConfigOptions) error {
	for i, v := range values {
		expanded, err := ExpandEnvironmentVariables(v, options)
		if err != nil {
			return err
		}
		values[i] = expanded
	}
	return nil
}
