// Package types contains the shared types and interfaces used across the
// iinterview library.
//
// It exists as a separate package so that internal packages can depend on the
// core types without importing the root package, avoiding import cycles. The
// root package re-exports the commonly used definitions via type aliases.
package types
