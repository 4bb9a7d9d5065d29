/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package lookup

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// ConfigProvider provides the config backend of the agent.
type ConfigProvider func() (ConfigBackend, error)

// ConfigBackend is the source of all config items.
type ConfigBackend interface {
	Lookup(key string) (interface{}, bool)
}

// New providers lookup wrapper around given backend.
func New(backend ConfigBackend) *ConfigLookup {
	return &ConfigLookup{backend: backend}
}

// ConfigLookup is wrapper for ConfigBackend which performs key lookup and unmarshalling.
type ConfigLookup struct {
	backend ConfigBackend
}

// Lookup returns value for given key.
func (c *ConfigLookup) Lookup(key string) (interface{}, bool) {
	val, ok := c.backend.Lookup(key)
	if ok {
		return val, true
	}

	return nil, false
}

// GetBool returns bool value for given key.
func (c *ConfigLookup) GetBool(key string) bool {
	value, ok := c.Lookup(key)
	if !ok {
		return false
	}

	return cast.ToBool(value)
}

// GetString returns string value for given key.
func (c *ConfigLookup) GetString(key string) string {
	value, ok := c.Lookup(key)
	if !ok {
		return ""
	}

	return cast.ToString(value)
}

// GetInt returns int value for given key.
func (c *ConfigLookup) GetInt(key string) int {
	value, ok := c.Lookup(key)
	if !ok {
		return 0
	}

	return cast.ToInt(value)
}

// GetDuration returns time.Duration value for given key.
func (c *ConfigLookup) GetDuration(key string) time.Duration {
	value, ok := c.Lookup(key)
	if !ok {
		return 0
	}

	return cast.ToDuration(value)
}

// GetStringSlice returns the string list for given key. A plain string is split on commas and spaces.
func (c *ConfigLookup) GetStringSlice(key string) []string {
	value, ok := c.Lookup(key)
	if !ok {
		return nil
	}

	if s, isString := value.(string); isString {
		return splitList(s)
	}

	return cast.ToStringSlice(value)
}

// UnmarshalKey decodes the structured value of key into v using its json field names. A string value
// is parsed as JSON first, so environment overrides may carry lists of objects.
func (c *ConfigLookup) UnmarshalKey(key string, v interface{}) error {
	value, ok := c.Lookup(key)
	if !ok {
		return nil
	}

	if s, isString := value.(string); isString {
		if err := json.Unmarshal([]byte(s), v); err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}

		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}

	if err = decoder.Decode(value); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}

	return nil
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
}
