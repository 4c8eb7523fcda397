package services

import "context"

// ContextMessage is one prior utterance handed to the generation
// collaborator, with role "user" or "assistant".
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Persona configures the assistant's register for one generation call.
// The fields are opaque strings echoed into the prompt.
type Persona struct {
	Tone    string
	Style   string
	Dialect string
}

// GenerationResult is the generation collaborator's reply.
type GenerationResult struct {
	Text       string
	Confidence float64
}

// TranscriptionProvider converts base64-encoded audio to text.
type TranscriptionProvider interface {
	Transcribe(ctx context.Context, audioBase64, language string) (string, error)
}

// GenerationProvider produces the assistant's reply text from the
// conversation window and persona.
type GenerationProvider interface {
	Generate(ctx context.Context, messages []ContextMessage, persona Persona) (*GenerationResult, error)
}

// SynthesisParams carry voice selection and prosody to the synthesizer.
type SynthesisParams struct {
	Voice  string
	Rate   string
	Pitch  string
	Volume string
}

// SynthesisProvider renders text to base64-encoded audio.
type SynthesisProvider interface {
	Synthesize(ctx context.Context, text string, params SynthesisParams) (string, error)
}

// SentimentProvider scores a transcript, returning a label and a score
// in [-1, 1].
type SentimentProvider interface {
	AnalyzeSentiment(ctx context.Context, text string) (label string, score float64, err error)
}
