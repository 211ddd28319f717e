// Package assess provides the business boundary for incident severity
// assessment. It defines the provider contracts for the text and image
// classifiers, the Assembler that runs both and fuses their output, the
// domain models and the Prometheus metrics for the subsystem.
package assess
