// Package tracing wraps OpenTelemetry so that the scheduler loops can open a
// span per unit of work without importing the SDK directly.
package tracing
