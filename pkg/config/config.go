/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config loads the agent configuration from a yaml or json source with VTP_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/config/lookup"
)

const defaultEnvPrefix = "VTP"

type options struct {
	envPrefix string
}

// Option configures the package.
type Option func(opts *options)

// WithEnvPrefix defines the prefix for environment variable overrides.
func WithEnvPrefix(prefix string) Option {
	return func(opts *options) {
		opts.envPrefix = prefix
	}
}

// FromReader loads configuration from in.
// configType can be "json" or "yaml".
func FromReader(in io.Reader, configType string, opts ...Option) lookup.ConfigProvider {
	return provider(opts, func(v *viper.Viper) error {
		if configType == "" {
			return errors.New("empty config type")
		}

		// viper needs the type to unmarshal a reader
		v.SetConfigType(configType)

		if err := v.MergeConfig(in); err != nil {
			return fmt.Errorf("viper MergeConfig failed : %w", err)
		}

		return nil
	})
}

// FromFile reads from named config file, its type taken from the extension.
func FromFile(name string, opts ...Option) lookup.ConfigProvider {
	return provider(opts, func(v *viper.Viper) error {
		if name == "" {
			return errors.New("filename is required")
		}

		v.SetConfigFile(name)

		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("loading config file failed: %w", err)
		}

		return nil
	})
}

// FromEnv resolves every key from the environment only.
func FromEnv(opts ...Option) lookup.ConfigProvider {
	return provider(opts, func(*viper.Viper) error { return nil })
}

func provider(opts []Option, load func(v *viper.Viper) error) lookup.ConfigProvider {
	return func() (lookup.ConfigBackend, error) {
		o := options{envPrefix: defaultEnvPrefix}

		for _, option := range opts {
			option(&o)
		}

		v := viper.New()
		v.SetEnvPrefix(o.envPrefix)
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

		if err := load(v); err != nil {
			return nil, err
		}

		return &viperBackend{v: v}, nil
	}
}

// viperBackend resolves keys from the merged sources, environment first.
type viperBackend struct {
	v *viper.Viper
}

// Lookup gets the config item value by Key.
func (b *viperBackend) Lookup(key string) (interface{}, bool) {
	value := b.v.Get(key)
	if value == nil {
		return nil, false
	}

	return value, true
}
