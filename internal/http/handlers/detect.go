package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"

	cache "github.com/patrickmn/go-cache"

	"server/internal/domain"
)

// DetectEmotion classifies the dominant emotion on an uploaded portrait.
// Results are cached by image digest so repeated uploads of the same photo
// do not burn classifier quota.
func (a *App) DetectEmotion(w http.ResponseWriter, r *http.Request) {
	image, err := a.readImageUpload(r)
	if err != nil {
		a.requestError(w, err)
		return
	}

	key := detectCacheKey(image)
	if a.DetectCache != nil {
		if hit, ok := a.DetectCache.Get(key); ok {
			a.json(w, http.StatusOK, hit)
			return
		}
	}

	res, err := a.Classifier.Classify(r.Context(), image)
	if err != nil {
		a.detectError(w, err)
		return
	}
	if a.DetectCache != nil {
		a.DetectCache.Set(key, res, cache.DefaultExpiration)
	}
	a.json(w, http.StatusOK, res)
}

func (a *App) detectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoFaceDetected):
		a.error(w, http.StatusUnprocessableEntity, "no_face_detected", "no face was detected in the image")
	case errors.Is(err, domain.ErrInvalidParameters):
		a.error(w, http.StatusBadRequest, string(domain.ErrorKindInvalidParameters), err.Error())
	default:
		a.Logger.Warn().Err(err).Msg("emotion detection failed")
		a.error(w, http.StatusBadGateway, string(domain.ErrorKindProviderUnavailable), "emotion detection is temporarily unavailable")
	}
}

func detectCacheKey(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}
