package categorize

import "context"

// Categorization is the structured result of classifying one thought.
type Categorization struct {
	Category   string   `json:"category"`   // ideas, tasks, reminders, notes, journal
	Tags       []string `json:"tags"`       // short free-form labels
	Confidence float64  `json:"confidence"` // 0-1
}

// Client defines the interface for thought categorization providers.
type Client interface {
	// Categorize classifies a transcribed thought into a category with tags.
	Categorize(ctx context.Context, text string) (*Categorization, error)
}
