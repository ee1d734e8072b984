// Package prompt assembles diffusion prompts and sampler parameters for
// emotion portrait jobs.
package prompt

import (
	"fmt"

	"server/internal/domain"
)

// Emotion phrases are tuned for facial expression edits; a bare emotion
// word produces much weaker results on stable diffusion checkpoints.
var emotionPhrases = map[domain.Emotion]string{
	domain.EmotionHappy:     "gentle smile, eyes slightly crinkled, joyful expression",
	domain.EmotionSad:       "downturned mouth, drooping eyes, melancholy expression",
	domain.EmotionAngry:     "furrowed brow, intense gaze, stern expression",
	domain.EmotionSurprised: "raised eyebrows, wide eyes, open mouth",
	domain.EmotionNeutral:   "calm expression, relaxed features, peaceful look",
	domain.EmotionDisgust:   "wrinkled nose, slight frown, disapproving look",
	domain.EmotionFear:      "wide eyes, tense features, worried expression",
}

var stylePhrases = map[domain.Style]string{
	domain.StylePhotorealistic: "photorealistic, high detail, professional photography",
	domain.StyleCartoon:        "cartoon style, animated, colorful, digital art",
	domain.StyleOilPainting:    "oil painting style, artistic, painterly, classical art",
}

const (
	defaultWidth    = 512
	defaultHeight   = 512
	defaultCfgScale = 7.5
	defaultSampler  = "k_euler"

	modifySteps   = 20
	generateSteps = 25
)

// Build maps a validated generation request onto a provider-neutral job
// spec. Modify mode keeps the uploaded photo as the source image and maps
// intensity onto denoising strength in the 0.2-0.8 range: low enough to
// preserve identity, high enough that the expression actually changes.
func Build(req domain.GenerationRequest) domain.JobSpec {
	emotionPhrase := emotionPhrases[req.Emotion]
	styleDesc := stylePhrases[req.Style]

	spec := domain.JobSpec{
		Width:    defaultWidth,
		Height:   defaultHeight,
		CfgScale: defaultCfgScale,
		Sampler:  defaultSampler,
	}

	if req.Mode == domain.ModeModify {
		spec.Prompt = fmt.Sprintf("same person, %s, %s", emotionPhrase, styleDesc)
		spec.SourceImage = req.Image
		spec.Steps = modifySteps
		spec.Denoise = Denoise(req.Intensity)
		return spec
	}

	spec.Prompt = fmt.Sprintf("portrait of a person showing %s, %s, clear face, good lighting", emotionPhrase, styleDesc)
	spec.Steps = generateSteps
	return spec
}

// Denoise converts an intensity in [0, 1] to a denoising strength in
// [0.2, 0.8].
func Denoise(intensity float64) float64 {
	return 0.2 + intensity*0.6
}
