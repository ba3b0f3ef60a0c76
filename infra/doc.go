// Package infra contains technical adapters: the zerolog logger, metrics
// sinks, the MQTT publisher, run stores and Sentry monitoring. These packages
// depend only on the interfaces defined in the core packages.
package infra
