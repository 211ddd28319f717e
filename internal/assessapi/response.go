package assessapi

import "github.com/linnemanlabs/infrasense/internal/assess"

type successResponse struct {
	Status string          `json:"status"`
	Data   *resultResponse `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// resultResponse is the wire form of assess.Result. Severity labels are
// serialised as strings except the text index, which stays an integer.
type resultResponse struct {
	TextSeverityIndex int           `json:"text_severity_index"`
	ImageAnalysis     imageResponse `json:"image_analysis"`
	FinalSeverity     string        `json:"final_severity"`
}

type imageResponse struct {
	Severity   string    `json:"severity"`
	Confidence float64   `json:"confidence"`
	RawScores  []float64 `json:"raw_scores"`
}

func toResponse(r *assess.Result) *resultResponse {
	scores := r.Image.RawScores
	if scores == nil {
		scores = []float64{}
	}
	return &resultResponse{
		TextSeverityIndex: int(r.Text.Severity),
		ImageAnalysis: imageResponse{
			Severity:   r.Image.Severity.String(),
			Confidence: r.Image.Confidence,
			RawScores:  scores,
		},
		FinalSeverity: r.Final.String(),
	}
}
