package prompt

import (
	"strings"
	"testing"

	"server/internal/domain"
)

func TestBuildModifyUsesSourceImageAndDenoise(t *testing.T) {
	req := domain.GenerationRequest{
		Image:     []byte{0x01, 0x02},
		Emotion:   domain.EmotionAngry,
		Intensity: 0.5,
		Style:     domain.StylePhotorealistic,
		Mode:      domain.ModeModify,
	}

	spec := Build(req)
	if len(spec.SourceImage) == 0 {
		t.Fatalf("modify spec must carry the source image")
	}
	if spec.Denoise != 0.5 {
		t.Fatalf("denoise = %v, want 0.5 for intensity 0.5", spec.Denoise)
	}
	if !strings.Contains(spec.Prompt, "same person") {
		t.Fatalf("modify prompt must preserve identity, got %q", spec.Prompt)
	}
	if !strings.Contains(spec.Prompt, "furrowed brow") {
		t.Fatalf("prompt missing emotion phrase: %q", spec.Prompt)
	}
	if spec.Steps != modifySteps {
		t.Fatalf("steps = %d, want %d", spec.Steps, modifySteps)
	}
}

func TestBuildGenerateHasNoSourceOrDenoise(t *testing.T) {
	req := domain.GenerationRequest{
		Emotion:   domain.EmotionHappy,
		Intensity: 0.4,
		Style:     domain.StyleCartoon,
		Mode:      domain.ModeGenerate,
	}

	spec := Build(req)
	if spec.SourceImage != nil {
		t.Fatalf("generate spec must not carry a source image")
	}
	if spec.Denoise != 0 {
		t.Fatalf("denoise = %v, want 0 for pure generation", spec.Denoise)
	}
	if !strings.Contains(spec.Prompt, "cartoon style") {
		t.Fatalf("prompt missing style phrase: %q", spec.Prompt)
	}
	if !strings.Contains(spec.Prompt, "joyful expression") {
		t.Fatalf("prompt missing emotion phrase: %q", spec.Prompt)
	}
}

func TestDenoiseRange(t *testing.T) {
	if got := Denoise(0); got != 0.2 {
		t.Fatalf("Denoise(0) = %v, want 0.2", got)
	}
	if got := Denoise(1); got != 0.8 {
		t.Fatalf("Denoise(1) = %v, want 0.8", got)
	}
}

func TestEveryEmotionAndStyleHasAPhrase(t *testing.T) {
	for _, e := range domain.Emotions {
		if emotionPhrases[e] == "" {
			t.Fatalf("missing phrase for emotion %q", e)
		}
	}
	for _, s := range []domain.Style{domain.StylePhotorealistic, domain.StyleCartoon, domain.StyleOilPainting} {
		if stylePhrases[s] == "" {
			t.Fatalf("missing phrase for style %q", s)
		}
	}
}
