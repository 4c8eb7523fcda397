package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"wakeel/internal/models"
)

type stubGenerator struct {
	text       string
	confidence float64
	err        error

	gotMessages []ContextMessage
	gotPersona  Persona
}

func (g *stubGenerator) Generate(_ context.Context, messages []ContextMessage, persona Persona) (*GenerationResult, error) {
	g.gotMessages = messages
	g.gotPersona = persona
	if g.err != nil {
		return nil, g.err
	}
	return &GenerationResult{Text: g.text, Confidence: g.confidence}, nil
}

func TestReplyEngineSuccess(t *testing.T) {
	gen := &stubGenerator{text: "مبروك! هحدد موعد الاجتماع", confidence: 0.85}
	engine := NewReplyEngine(gen, logrus.New())

	cc := &ConversationContext{History: []ContextMessage{{Role: "user", Content: "سابقة"}}}
	reply := engine.Reply(context.Background(), "إزيك", cc, Persona{Tone: "friendly"})

	if reply.Text != gen.text {
		t.Errorf("text = %q", reply.Text)
	}
	if reply.Emotion != models.EmotionHappy {
		t.Errorf("emotion = %q, want happy", reply.Emotion)
	}
	if reply.Confidence != 0.85 {
		t.Errorf("confidence = %v", reply.Confidence)
	}
	if len(gen.gotMessages) != 2 {
		t.Fatalf("prompt messages = %d, want history + inbound", len(gen.gotMessages))
	}
	if gen.gotMessages[1].Content != "إزيك" {
		t.Errorf("inbound message = %q", gen.gotMessages[1].Content)
	}
	if !containsString(reply.SuggestedActions, "تحديد موعد") {
		t.Errorf("actions = %v, want تحديد موعد", reply.SuggestedActions)
	}
}

func TestReplyCarriesCallerMetadata(t *testing.T) {
	gen := &stubGenerator{text: "تمام", confidence: 0.9}
	engine := NewReplyEngine(gen, logrus.New())

	cc := &ConversationContext{
		Relationship: "معرفة",
		LastContact:  "2026-03-01 10:29",
	}
	engine.Reply(context.Background(), "فين صاحبك؟", cc, Persona{})

	if len(gen.gotMessages) != 1 {
		t.Fatalf("prompt messages = %d, want 1", len(gen.gotMessages))
	}
	got := gen.gotMessages[0].Content
	if !strings.Contains(got, "فين صاحبك؟") {
		t.Errorf("inbound utterance missing from %q", got)
	}
	if !strings.Contains(got, "[العلاقة: معرفة]") {
		t.Errorf("relationship tag missing from %q", got)
	}
	if !strings.Contains(got, "[آخر تواصل: 2026-03-01 10:29]") {
		t.Errorf("last-contact tag missing from %q", got)
	}

	// A first-time caller with no metadata gets the bare utterance.
	gen2 := &stubGenerator{text: "تمام", confidence: 0.9}
	engine2 := NewReplyEngine(gen2, logrus.New())
	engine2.Reply(context.Background(), "إزيك", &ConversationContext{}, Persona{})
	if gen2.gotMessages[0].Content != "إزيك" {
		t.Errorf("bare utterance = %q, want %q", gen2.gotMessages[0].Content, "إزيك")
	}
}

func TestReplyEngineFallback(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model unavailable")}
	engine := NewReplyEngine(gen, logrus.New())

	inputs := []string{"", "مبروك يا صديقي", "أنا متضايق جداً"}
	for _, in := range inputs {
		reply := engine.Reply(context.Background(), in, &ConversationContext{}, Persona{})
		if reply.Text != fallbackReplyText {
			t.Errorf("fallback text = %q", reply.Text)
		}
		if reply.Emotion != models.EmotionNeutral {
			t.Errorf("fallback emotion for %q = %q, want neutral", in, reply.Emotion)
		}
		if !reply.RequiresFollowUp {
			t.Errorf("fallback for %q must require follow-up", in)
		}
		if reply.Confidence != 0.5 {
			t.Errorf("fallback confidence = %v, want 0.5", reply.Confidence)
		}
		if len(reply.SuggestedActions) != 1 {
			t.Errorf("fallback actions = %v", reply.SuggestedActions)
		}
	}
}

func TestNeedsFollowUp(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"سأعاود الاتصال بك", true},
		{"هكلمك بكرة", true},
		{"تمام، اتفقنا", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := needsFollowUp(tt.text); got != tt.want {
			t.Errorf("needsFollowUp(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestSuggestedActionsDeduplicated(t *testing.T) {
	// "اجتماع" and "موعد" both map to the same action; it appears once.
	actions := suggestedActions("هحدد موعد الاجتماع وابعتلك رسالة")
	want := []string{"إرسال رسالة", "تحديد موعد"}
	if len(actions) != len(want) {
		t.Fatalf("actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("actions = %v, want %v", actions, want)
			break
		}
	}
}
