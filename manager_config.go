// manager_config.go: Manager configuration, defaults and file loading
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/agilira/argus"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths are probed when no explicit location is configured.
// Each is directory-style, so "<PluginType>.xml" is appended to it.
var DefaultSearchPaths = []string{"META-INF/plugins/", "plugins/"}

// Watch defaults.
const (
	DefaultWatchPollInterval = 2 * time.Second
	minWatchPollInterval     = 10 * time.Millisecond
)

// DefaultPluginType derives the descriptor name of a bean supertype: the
// last element of its package path plus the type name, such as
// "app.Sink" for example.com/app.Sink. Unnamed types map to "plugins".
func DefaultPluginType(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "plugins"
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return path.Base(t.PkgPath()) + "." + t.Name()
}

// ManagerConfig configures where a Manager looks for descriptors.
//
// Example (YAML):
//
//	plugin_type: app.Sink
//	locations:
//	  - plugins/
//	  - extra/**/*.xml
//	expand_env: true
//	watch:
//	  enabled: true
//	  poll_interval: 1s
type ManagerConfig struct {
	// PluginType names the descriptor file probed in directory-style
	// locations. It defaults to DefaultPluginType of the manager's bean
	// supertype.
	PluginType string `json:"plugin_type,omitempty" yaml:"plugin_type,omitempty"`

	// Locations are resource patterns, scanned in order. A location ending
	// in "/" is a directory and gets "<PluginType>.xml" appended; anything
	// else is a resource path that may contain wildcards.
	Locations []string `json:"locations,omitempty" yaml:"locations,omitempty"`

	// DefaultSearchPaths replace the package defaults when Locations is empty.
	DefaultSearchPaths []string `json:"default_search_paths,omitempty" yaml:"default_search_paths,omitempty"`

	// ExpandEnv enables ${VAR} expansion in locations and property values.
	ExpandEnv bool             `json:"expand_env,omitempty" yaml:"expand_env,omitempty"`
	Env       EnvConfigOptions `json:"env,omitempty" yaml:"env,omitempty"`

	Watch WatchOptions `json:"watch,omitempty" yaml:"watch,omitempty"`
}

// WatchOptions configures the DescriptorWatcher.
type WatchOptions struct {
	Enabled      bool          `json:"enabled" yaml:"enabled"`
	PollInterval time.Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`

	// AuditFile enables argus audit logging of descriptor changes.
	AuditFile string `json:"audit_file,omitempty" yaml:"audit_file,omitempty"`
}

// ApplyDefaults fills unset fields. pluginType is used when PluginType is
// empty.
func (c *ManagerConfig) ApplyDefaults(pluginType string) {
	if c.PluginType == "" {
		c.PluginType = pluginType
	}
	if len(c.DefaultSearchPaths) == 0 {
		c.DefaultSearchPaths = append([]string(nil), DefaultSearchPaths...)
	}
	if c.Watch.PollInterval == 0 {
		c.Watch.PollInterval = DefaultWatchPollInterval
	}
}

// Validate checks the configuration after defaults were applied.
func (c ManagerConfig) Validate() error {
	if strings.TrimSpace(c.PluginType) == "" {
		return NewConfigValidationError("plugin type cannot be empty", nil)
	}
	if strings.ContainsAny(c.PluginType, "/\\") {
		return NewConfigValidationError(fmt.Sprintf("plugin type %q cannot contain path separators", c.PluginType), nil)
	}
	for i, loc := range c.Locations {
		if strings.TrimSpace(loc) == "" {
			return NewConfigValidationError(fmt.Sprintf("location %d is empty", i), nil)
		}
	}
	for i, loc := range c.DefaultSearchPaths {
		if strings.TrimSpace(loc) == "" {
			return NewConfigValidationError(fmt.Sprintf("default search path %d is empty", i), nil)
		}
	}
	if c.Watch.Enabled && c.Watch.PollInterval < minWatchPollInterval {
		return NewConfigValidationError(
			fmt.Sprintf("watch poll interval %v is below the minimum of %v", c.Watch.PollInterval, minWatchPollInterval), nil)
	}
	return nil
}

// DescriptorFileName is the file probed in directory-style locations.
func (c ManagerConfig) DescriptorFileName() string {
	return c.PluginType + ".xml"
}

// ResolveLocations returns the resource patterns of one load, in order.
func (c ManagerConfig) ResolveLocations() ([]string, error) {
	source := c.Locations
	if len(source) == 0 {
		source = c.DefaultSearchPaths
	}
	out := make([]string, len(source))
	copy(out, source)

	if c.ExpandEnv {
		if err := expandStrings(out, c.Env); err != nil {
			return nil, err
		}
	}
	for i, loc := range out {
		if isDirectoryLocation(loc) {
			out[i] = loc + c.DescriptorFileName()
		}
	}
	return out, nil
}

func isDirectoryLocation(loc string) bool {
	return strings.HasSuffix(loc, "/")
}

// LoadManagerConfig reads a ManagerConfig from a JSON, YAML or TOML file.
// The format is detected from the extension.
func LoadManagerConfig(configPath string) (ManagerConfig, error) {
	var config ManagerConfig

	data, err := os.ReadFile(filepath.Clean(configPath)) // #nosec G304 -- caller-provided config path
	if err != nil {
		return config, NewConfigFileError(configPath, "cannot read configuration file", err)
	}
	if err := ParseManagerConfig(data, argus.DetectFormat(configPath), &config); err != nil {
		return config, NewConfigParseError(configPath, err)
	}
	return config, nil
}

// ParseManagerConfig decodes data of the given format into config.
// YAML goes through yaml.v3 for anchors and multi-line strings, every other format
// through argus.
func ParseManagerConfig(data []byte, format argus.ConfigFormat, config *ManagerConfig) error {
	var raw map[string]any
	switch format {
	case argus.FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		parsed, err := argus.ParseConfig(data, format)
		if err != nil {
			return err
		}
		raw = parsed
	}
	return bindManagerConfig(raw, config)
}

func bindManagerConfig(raw map[string]any, config *ManagerConfig) error {
	if raw == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: config,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
