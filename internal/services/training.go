package services

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Voice is one prebuilt neural voice available for synthesis.
type Voice struct {
	Name    string `json:"name"`
	Gender  string `json:"gender"`
	VoiceID string `json:"voice_id"`
}

// TrainingStatus reports per-user voice-model training progress.
type TrainingStatus struct {
	UserID   string  `json:"user_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
	ModelID  string  `json:"model_id,omitempty"`
}

// TrainingResult is returned when a training request is accepted.
type TrainingResult struct {
	ModelID         string  `json:"model_id"`
	QualityScore    float64 `json:"quality_score"`
	AvailableVoices []Voice `json:"available_voices"`
}

const (
	minTrainingSamples = 3
	maxTrainingSamples = 20

	defaultModelID = "ar-EG-SalmaNeural"
)

// TrainingService tracks voice training status per user. Synthesis
// runs on prebuilt neural voices, so training completes immediately;
// the surface exists for app compatibility. Status lives in process
// memory in a keyed map with per-user locks.
type TrainingService struct {
	logger *logrus.Logger

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	status map[string]TrainingStatus

	voices []Voice
}

func NewTrainingService(logger *logrus.Logger) *TrainingService {
	return &TrainingService{
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
		status: make(map[string]TrainingStatus),
		voices: []Voice{
			{Name: "Salma", Gender: "female", VoiceID: "ar-EG-SalmaNeural"},
			{Name: "Shakir", Gender: "male", VoiceID: "ar-EG-ShakirNeural"},
		},
	}
}

// StartTraining validates the sample set and records the immediately
// completed training.
func (s *TrainingService) StartTraining(userID string, samples []string) (*TrainingResult, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}
	if len(samples) < minTrainingSamples || len(samples) > maxTrainingSamples {
		return nil, &ValidationError{Field: "voice_samples", Reason: "expected between 3 and 20 samples"}
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	s.logger.WithField("user_id", userID).Info("voice training requested, using prebuilt voices")

	s.mu.Lock()
	s.status[userID] = TrainingStatus{
		UserID:   userID,
		Status:   "not_needed",
		Progress: 100,
		Message:  "prebuilt neural voices in use, no training required",
		ModelID:  defaultModelID,
	}
	s.mu.Unlock()

	return &TrainingResult{
		ModelID:         defaultModelID,
		QualityScore:    0.95,
		AvailableVoices: s.Voices(),
	}, nil
}

// Status returns the user's training state, defaulting to not started.
func (s *TrainingService) Status(userID string) TrainingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.status[userID]; ok {
		return st
	}
	return TrainingStatus{
		UserID:   userID,
		Status:   "not_started",
		Progress: 0,
		Message:  "training has not started",
	}
}

// Voices lists the synthesis voices available to all users.
func (s *TrainingService) Voices() []Voice {
	out := make([]Voice, len(s.voices))
	copy(out, s.voices)
	return out
}

func (s *TrainingService) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}
