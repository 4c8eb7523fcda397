package services

import (
	"fmt"
	"strings"

	"wakeel/internal/models"
)

// emotionRule pairs an emotion with its trigger keywords. Rules are
// evaluated in declaration order and the first hit wins, so earlier
// emotions shadow later ones when several keyword sets match.
type emotionRule struct {
	emotion  models.EmotionType
	keywords []string
}

var emotionRules = []emotionRule{
	{models.EmotionHappy, []string{"مبروك", "هايل", "جميل", "رائع", "ممتاز", "😊", "فرحان"}},
	{models.EmotionSad, []string{"أسف", "للأسف", "مش عارف", "صعب", "😢", "حزين"}},
	{models.EmotionAngry, []string{"غاضب", "زعلان", "مش معقول", "😠", "متضايق"}},
	{models.EmotionWorried, []string{"قلقان", "خايف", "مش متأكد", "😟", "متردد"}},
	{models.EmotionExcited, []string{"يلا", "هايل", "عظيم", "ولا أروع", "😍", "متحمس"}},
}

// ClassifyEmotion picks the first emotion whose keyword set intersects
// the lowercased text, or neutral when none match.
func ClassifyEmotion(text string) models.EmotionType {
	lower := strings.ToLower(text)
	for _, rule := range emotionRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.emotion
			}
		}
	}
	return models.EmotionNeutral
}

// ProsodyParams are the synthesis adjustments for one reply: rate as a
// signed percentage delta from baseline, pitch as a signed Hz delta.
type ProsodyParams struct {
	Rate  string
	Pitch string
}

type prosodyEffect struct {
	rateMultiplier float64
	pitchHz        int
}

var prosodyEffects = map[models.EmotionType]prosodyEffect{
	models.EmotionHappy:   {rateMultiplier: 1.10, pitchHz: 5},
	models.EmotionSad:     {rateMultiplier: 0.90, pitchHz: -5},
	models.EmotionExcited: {rateMultiplier: 1.20, pitchHz: 8},
	models.EmotionWorried: {rateMultiplier: 0.95, pitchHz: 0},
	models.EmotionNeutral: {rateMultiplier: 1.00, pitchHz: 0},
}

// DeriveProsody applies the emotion's effect to the policy-configured
// base speed. Emotions without an entry use the neutral effect.
func DeriveProsody(emotion models.EmotionType, baseSpeed float64) ProsodyParams {
	effect, ok := prosodyEffects[emotion]
	if !ok {
		effect = prosodyEffects[models.EmotionNeutral]
	}

	ratePercent := int((baseSpeed*effect.rateMultiplier - 1.0) * 100)
	return ProsodyParams{
		Rate:  formatSigned(ratePercent, "%%"),
		Pitch: formatSigned(effect.pitchHz, "Hz"),
	}
}

func formatSigned(value int, unit string) string {
	if value >= 0 {
		return fmt.Sprintf("+%d"+unit, value)
	}
	return fmt.Sprintf("%d"+unit, value)
}
