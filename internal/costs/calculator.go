// Package costs provides cost estimation for API usage.
package costs

import (
	"os"
	"strconv"
)

// Pricing constants (in cents per unit for precision).
// Based on current provider list prices; override via environment variables.
var (
	// HostedModelCentsPerMinute is the cost per audio minute on the
	// hosted inference API.
	// Default: $0.006/min = 0.6 cents/min
	HostedModelCentsPerMinute = getEnvFloat("COST_HOSTED_CENTS_PER_MIN", 0.6)

	// CommercialAPICentsPerMinute is the cost per audio minute for the
	// commercial transcription API.
	// Default: $0.006/min = 0.6 cents/min
	CommercialAPICentsPerMinute = getEnvFloat("COST_COMMERCIAL_CENTS_PER_MIN", 0.6)

	// CategorizeCentsPerThousandInputTokens is the cost per 1K input tokens
	// for the categorization model.
	CategorizeCentsPerThousandInputTokens = getEnvFloat("COST_CATEGORIZE_INPUT_CENTS_PER_1K", 0.015)

	// CategorizeCentsPerThousandOutputTokens is the cost per 1K output tokens
	// for the categorization model.
	CategorizeCentsPerThousandOutputTokens = getEnvFloat("COST_CATEGORIZE_OUTPUT_CENTS_PER_1K", 0.06)
)

// CaptureMetrics contains the raw metrics from one capture used for cost estimation.
type CaptureMetrics struct {
	AudioSeconds          int  // Audio duration sent to a server backend
	UsedCommercialBackend bool // Which per-minute rate applies
	CategorizeInputTokens int
	CategorizeOutputTokens int
}

// CaptureCosts contains the estimated costs for one capture in cents.
type CaptureCosts struct {
	TranscriptionCostCents float64
	CategorizeCostCents    float64
	TotalCostCents         float64
}

// EstimateCaptureCosts computes the estimated provider costs for a capture.
// Captures answered purely from the client's real-time transcript cost nothing.
func EstimateCaptureCosts(m CaptureMetrics) CaptureCosts {
	minutes := float64(m.AudioSeconds) / 60.0

	rate := HostedModelCentsPerMinute
	if m.UsedCommercialBackend {
		rate = CommercialAPICentsPerMinute
	}

	transcription := minutes * rate
	categorize := float64(m.CategorizeInputTokens)/1000.0*CategorizeCentsPerThousandInputTokens +
		float64(m.CategorizeOutputTokens)/1000.0*CategorizeCentsPerThousandOutputTokens

	return CaptureCosts{
		TranscriptionCostCents: transcription,
		CategorizeCostCents:    categorize,
		TotalCostCents:         transcription + categorize,
	}
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
