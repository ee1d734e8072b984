package domain

import (
	"fmt"
	"strings"
)

// Emotion enumerates the facial expressions the service can target.
type Emotion string

const (
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionAngry     Emotion = "angry"
	EmotionSurprised Emotion = "surprised"
	EmotionNeutral   Emotion = "neutral"
	EmotionDisgust   Emotion = "disgust"
	EmotionFear      Emotion = "fear"
)

// Emotions lists every supported emotion, in a stable order for error messages.
var Emotions = []Emotion{
	EmotionHappy,
	EmotionSad,
	EmotionAngry,
	EmotionSurprised,
	EmotionNeutral,
	EmotionDisgust,
	EmotionFear,
}

// ParseEmotion normalizes user input into an Emotion.
func ParseEmotion(raw string) (Emotion, error) {
	e := Emotion(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Emotions {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported emotion %q (use one of %s)", ErrInvalidParameters, raw, joinEmotions())
}

func joinEmotions() string {
	names := make([]string, len(Emotions))
	for i, e := range Emotions {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}

// Style enumerates the rendering styles for generated portraits.
type Style string

const (
	StylePhotorealistic Style = "photorealistic"
	StyleCartoon        Style = "cartoon"
	StyleOilPainting    Style = "oil_painting"
)

// ParseStyle normalizes user input into a Style. Empty input falls back to
// photorealistic, matching the request layer defaults.
func ParseStyle(raw string) (Style, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "", "photorealistic":
		return StylePhotorealistic, nil
	case "cartoon":
		return StyleCartoon, nil
	case "oil", "oil_painting", "oilpainting":
		return StyleOilPainting, nil
	}
	return "", fmt.Errorf("%w: unsupported style %q (use photorealistic, cartoon or oil_painting)", ErrInvalidParameters, raw)
}

// Mode distinguishes editing an uploaded photo from generating a new portrait.
type Mode string

const (
	ModeModify   Mode = "modify"
	ModeGenerate Mode = "generate"
)

// GenerationRequest is the validated input for one generation.
type GenerationRequest struct {
	Image     []byte
	Emotion   Emotion
	Intensity float64
	Style     Style
	Mode      Mode
}

// Normalize clamps the intensity into [0, 1] before dispatch.
func (r *GenerationRequest) Normalize() {
	if r.Intensity < 0 {
		r.Intensity = 0
	}
	if r.Intensity > 1 {
		r.Intensity = 1
	}
	if r.Style == "" {
		r.Style = StylePhotorealistic
	}
}

// Validate enforces the request invariants. Modify mode requires image
// bytes, Generate mode forbids them.
func (r GenerationRequest) Validate() error {
	switch r.Mode {
	case ModeModify:
		if len(r.Image) == 0 {
			return fmt.Errorf("%w: modify mode requires an image", ErrInvalidParameters)
		}
	case ModeGenerate:
		if len(r.Image) != 0 {
			return fmt.Errorf("%w: generate mode does not accept an image", ErrInvalidParameters)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidParameters, r.Mode)
	}
	if _, err := ParseEmotion(string(r.Emotion)); err != nil {
		return err
	}
	if _, err := ParseStyle(string(r.Style)); err != nil {
		return err
	}
	if r.Intensity < 0 || r.Intensity > 1 {
		return fmt.Errorf("%w: intensity %.2f outside [0, 1]", ErrInvalidParameters, r.Intensity)
	}
	return nil
}
