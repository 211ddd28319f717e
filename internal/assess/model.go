package assess

import "github.com/linnemanlabs/infrasense/internal/severity"

// TextPrediction is the text classifier's verdict for one request, as
// carried on the Result.
type TextPrediction struct {
	Severity severity.Level
}

// ImagePrediction is the image classifier's verdict for one request.
// RawScores holds one score per class in scale order (Low, Medium, High);
// Severity is the argmax and Confidence the max.
type ImagePrediction struct {
	Severity   severity.Level
	Confidence float64
	RawScores  []float64
}

// Result is the fused outcome of an assessment. It is never mutated once
// returned by the Assembler.
type Result struct {
	ID    string
	Text  TextPrediction
	Image ImagePrediction
	Final severity.Level
}
