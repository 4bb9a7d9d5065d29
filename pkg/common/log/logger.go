/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package log exposes the module based logger used across the agent.
package log

import (
	"github.com/hyperledger/aries-framework-go/component/log"
	spilog "github.com/hyperledger/aries-framework-go/spi/log"
)

// Log is an implementation of Logger interface.
// It encapsulates default or custom logger to provide module and level based logging.
type Log = log.Log

// Level is a log level for a logging message.
type Level = spilog.Level

// Logger is the logger contract custom providers must satisfy.
type Logger = spilog.Logger

// LoggerProvider is a factory for module loggers.
type LoggerProvider = spilog.LoggerProvider

const (
	// CRITICAL is a logging level.
	CRITICAL = spilog.CRITICAL
	// ERROR is a logging level.
	ERROR = spilog.ERROR
	// WARNING is a logging level.
	WARNING = spilog.WARNING
	// INFO is a logging level.
	INFO = spilog.INFO
	// DEBUG is a logging level.
	DEBUG = spilog.DEBUG
)

// New creates and returns a Logger implementation based on given module name.
// note: the underlying logger instance is lazy initialized on first use.
func New(module string) *Log {
	return log.New(module)
}

// Initialize sets a custom logger provider. Must be called before any line is logged.
func Initialize(l LoggerProvider) {
	log.Initialize(l)
}

// SetLevel sets the log level for given module. Level defaults to info.
func SetLevel(module string, level Level) {
	log.SetLevel(module, level)
}

// GetLevel returns the log level of given module.
func GetLevel(module string) Level {
	return log.GetLevel(module)
}

// ParseLevel returns the log level from a string representation.
func ParseLevel(level string) (Level, error) {
	return log.ParseLevel(level)
}
