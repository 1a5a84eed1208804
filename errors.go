// errors.go: structured error definitions for the descriptor-driven plugin loader
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	stderrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for the go-beanplugins system
const (
	// Load boundary (1000-1099)
	ErrCodeLoadFailed = "PLUGIN_LOAD_1000"

	// Descriptor errors (1100-1199)
	ErrCodeDescriptorParse      = "DESCRIPTOR_1101"
	ErrCodeDescriptorSchema     = "DESCRIPTOR_1102"
	ErrCodeUnknownOperation     = "DESCRIPTOR_1103"
	ErrCodeMissingAttribute     = "DESCRIPTOR_1104"
	ErrCodeResourceUnreadable   = "DESCRIPTOR_1105"
	ErrCodeInvalidPattern       = "DESCRIPTOR_1106"
	ErrCodeSchemaCompileFailure = "DESCRIPTOR_1107"

	// Plugin semantic errors (1200-1299)
	ErrCodeDuplicatePlugin  = "PLUGIN_1201"
	ErrCodePluginNotFound   = "PLUGIN_1202"
	ErrCodeNotAssignable    = "PLUGIN_1203"

	// Type resolution and construction errors (1300-1399)
	ErrCodeClassNotFound     = "TYPE_1301"
	ErrCodeConstruction      = "TYPE_1302"
	ErrCodeInvalidTypeName   = "TYPE_1303"
	ErrCodeDuplicateTypeName = "TYPE_1304"

	// Property binding errors (1400-1499)
	ErrCodePropertyNotFound = "BIND_1401"
	ErrCodeCoercion         = "BIND_1402"
	ErrCodeJSONDecode       = "BIND_1403"
	ErrCodeInvalidBean      = "BIND_1404"

	// Configuration errors (1500-1599)
	ErrCodeConfigValidation = "CONFIG_1501"
	ErrCodeConfigParse      = "CONFIG_1502"
	ErrCodeConfigFile       = "CONFIG_1503"
	ErrCodeConfigWatcher    = "CONFIG_1504"
	ErrCodeEnvExpansion     = "CONFIG_1505"
)

// Load boundary

// NewLoadFailedError wraps the root cause of an aborted load. It is the only
// error Manager.Load returns.
func NewLoadFailedError(cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeLoadFailed, "Loading plugin failed : "+causeText(cause)).
		WithUserMessage("Plugin descriptors could not be loaded").
		WithSeverity("error")
}

// Descriptor error constructors

func NewDescriptorParseError(resource string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeDescriptorParse, fmt.Sprintf("malformed plugin descriptor %s", resource)).
		WithUserMessage("The plugin descriptor is not well-formed XML").
		WithContext("resource", resource).
		WithSeverity("error")
}

func NewDescriptorSchemaError(resource string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeDescriptorSchema, fmt.Sprintf("plugin descriptor %s failed schema validation", resource)).
		WithUserMessage("The plugin descriptor does not match the descriptor schema").
		WithContext("resource", resource).
		WithSeverity("error")
}

func NewUnknownOperationError(resource, element string) *errors.Error {
	return errors.New(ErrCodeUnknownOperation, fmt.Sprintf("unknown element <%s> in %s, expected <add> or <set>", element, resource)).
		WithUserMessage("Plugin descriptors may only contain add and set operations").
		WithContext("resource", resource).
		WithContext("element", element).
		WithSeverity("error")
}

func NewMissingAttributeError(resource, element, attribute string) *errors.Error {
	return errors.New(ErrCodeMissingAttribute, fmt.Sprintf("<%s> in %s requires the %q attribute", element, resource, attribute)).
		WithUserMessage("A required descriptor attribute is missing").
		WithContext("resource", resource).
		WithContext("element", element).
		WithContext("attribute", attribute).
		WithSeverity("error")
}

func NewResourceUnreadableError(resource string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeResourceUnreadable, fmt.Sprintf("cannot read plugin descriptor %s", resource)).
		WithUserMessage("The plugin descriptor could not be read").
		WithContext("resource", resource).
		WithSeverity("error")
}

func NewInvalidPatternError(pattern string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeInvalidPattern, fmt.Sprintf("invalid resource pattern %q", pattern)).
		WithUserMessage("The descriptor location pattern is invalid").
		WithContext("pattern", pattern).
		WithSeverity("error")
}

func NewSchemaCompileError(cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeSchemaCompileFailure, "descriptor schema does not compile").
		WithSeverity("critical")
}

// Plugin semantic error constructors

func NewDuplicatePluginError(name, resource string) *errors.Error {
	return errors.New(ErrCodeDuplicatePlugin, fmt.Sprintf("plugin %q already exists, duplicate <add> in %s", name, resource)).
		WithUserMessage("Plugin names must be unique (case-insensitive)").
		WithContext("plugin_name", name).
		WithContext("resource", resource).
		WithSeverity("error")
}

func NewPluginNotFoundError(name, resource string) *errors.Error {
	return errors.New(ErrCodePluginNotFound, fmt.Sprintf("plugin %q not found in %s, use <add> instead", name, resource)).
		WithUserMessage("A <set> operation references a plugin that does not exist").
		WithContext("plugin_name", name).
		WithContext("resource", resource).
		WithSeverity("error")
}

func NewNotAssignableError(name, class, supertype, resource string) *errors.Error {
	return errors.New(ErrCodeNotAssignable, fmt.Sprintf("plugin %q in %s: type %s is not assignable to %s", name, resource, class, supertype)).
		WithUserMessage("The plugin class does not implement the required plugin type").
		WithContext("plugin_name", name).
		WithContext("class", class).
		WithContext("supertype", supertype).
		WithContext("resource", resource).
		WithSeverity("error")
}

// Type error constructors

func NewClassNotFoundError(class string) *errors.Error {
	return errors.New(ErrCodeClassNotFound, fmt.Sprintf("class not found: %s", class)).
		WithUserMessage("The plugin class is not registered").
		WithContext("class", class).
		WithSeverity("error")
}

func NewConstructionError(class string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConstruction, fmt.Sprintf("cannot instantiate %s", class)).
		WithUserMessage("The plugin class could not be instantiated").
		WithContext("class", class).
		WithSeverity("error")
}

func NewInvalidTypeNameError(name string) *errors.Error {
	return errors.New(ErrCodeInvalidTypeName, "type name cannot be empty").
		WithContext("class", name).
		WithSeverity("error")
}

func NewDuplicateTypeNameError(name string) *errors.Error {
	return errors.New(ErrCodeDuplicateTypeName, fmt.Sprintf("type %s is already registered", name)).
		WithContext("class", name).
		WithSeverity("error")
}

// Binding error constructors

func NewPropertyNotFoundError(property, beanType string) *errors.Error {
	return errors.New(ErrCodePropertyNotFound, fmt.Sprintf("property %q not found on %s", property, beanType)).
		WithUserMessage("The descriptor sets a property the plugin does not declare").
		WithContext("property", property).
		WithContext("bean_type", beanType).
		WithSeverity("error")
}

func NewCoercionError(property, beanType, value string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeCoercion, fmt.Sprintf("cannot assign %q to property %q of %s", value, property, beanType)).
		WithUserMessage("The property value cannot be converted to the declared type").
		WithContext("property", property).
		WithContext("bean_type", beanType).
		WithSeverity("error")
}

func NewJSONDecodeError(property, beanType string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeJSONDecode, fmt.Sprintf("cannot decode JSON for property %q of %s", property, beanType)).
		WithUserMessage("The JSON property value does not match the declared type").
		WithContext("property", property).
		WithContext("bean_type", beanType).
		WithSeverity("error")
}

func NewInvalidBeanError(beanType string) *errors.Error {
	return errors.New(ErrCodeInvalidBean, fmt.Sprintf("bean of type %s is not a pointer to a struct", beanType)).
		WithUserMessage("Plugin beans must be pointers to structs").
		WithContext("bean_type", beanType).
		WithSeverity("error")
}

// Configuration error constructors

func NewConfigValidationError(message string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeConfigValidation, "Configuration validation error: "+message).
			WithUserMessage("Configuration validation failed").
			WithSeverity("error")
	}
	return errors.New(ErrCodeConfigValidation, "Configuration validation error: "+message).
		WithUserMessage("Configuration validation failed").
		WithSeverity("error")
}

func NewConfigParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigParse, "Configuration parse error").
		WithUserMessage("Failed to parse configuration file").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigFileError(path string, message string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigFile, "Configuration file error: "+message).
		WithUserMessage("Configuration file access failed").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigWatcherError(message string, cause error) *errors.Error {
	if cause == nil {
		return errors.New(ErrCodeConfigWatcher, "Descriptor watcher error: "+message).
			WithUserMessage("Descriptor monitoring failed").
			WithSeverity("error")
	}
	return errors.Wrap(cause, ErrCodeConfigWatcher, "Descriptor watcher error: "+message+": "+causeText(cause)).
		WithUserMessage("Descriptor monitoring failed").
		WithSeverity("error")
}

func NewEnvExpansionError(variable, message string) *errors.Error {
	return errors.New(ErrCodeEnvExpansion, fmt.Sprintf("environment variable %s: %s", variable, message)).
		WithContext("variable", variable).
		WithSeverity("error")
}

// HasErrorCode reports whether err, or any error in its cause chain, carries code.
func HasErrorCode(err error, code string) bool {
	for err != nil {
		var goErr *errors.Error
		if stderrors.As(err, &goErr) {
			if goErr.ErrorCode() == errors.ErrorCode(code) {
				return true
			}
			err = goErr.Cause
			continue
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// RootCause follows the cause chain down to the innermost error.
func RootCause(err error) error {
	for err != nil {
		var next error
		var goErr *errors.Error
		if stderrors.As(err, &goErr) && goErr.Cause != nil {
			next = goErr.Cause
		} else {
			next = stderrors.Unwrap(err)
		}
		if next == nil {
			return err
		}
		err = next
	}
	return err
}

func causeText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
