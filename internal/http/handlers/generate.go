package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"server/internal/domain"
)

// EditImage reworks an uploaded portrait to show the requested emotion.
func (a *App) EditImage(w http.ResponseWriter, r *http.Request) {
	image, err := a.readImageUpload(r)
	if err != nil {
		a.requestError(w, err)
		return
	}
	emotion, intensity, style, err := parseGenerationParams(r)
	if err != nil {
		a.requestError(w, err)
		return
	}

	req := domain.GenerationRequest{
		Image:     image,
		Emotion:   emotion,
		Intensity: intensity,
		Style:     style,
		Mode:      domain.ModeModify,
	}
	a.serveGeneration(w, r, req)
}

// GenerateImage creates a portrait of the requested emotion from scratch.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_parameters", "invalid form payload")
		return
	}
	emotion, intensity, style, err := parseGenerationParams(r)
	if err != nil {
		a.requestError(w, err)
		return
	}

	req := domain.GenerationRequest{
		Emotion:   emotion,
		Intensity: intensity,
		Style:     style,
		Mode:      domain.ModeGenerate,
	}
	a.serveGeneration(w, r, req)
}

func (a *App) serveGeneration(w http.ResponseWriter, r *http.Request, req domain.GenerationRequest) {
	res := a.Generator.Generate(r.Context(), req)

	if a.History.Enabled() {
		if err := a.History.Record(r.Context(), req, res); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to record generation history")
		}
	}

	if !res.Success {
		a.generationError(w, res)
		return
	}

	mime := res.MIME
	if mime == "" {
		mime = "image/png"
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", `attachment; filename="portrait.png"`)
	w.Header().Set("X-Elapsed-Ms", strconv.FormatInt(res.Elapsed.Milliseconds(), 10))
	w.Header().Set("X-Poll-Count", strconv.Itoa(res.PollAttempts))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Image)
}

// requestError maps pre-dispatch failures (upload and parameter parsing)
// onto the error contract.
func (a *App) requestError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidParameters) {
		a.error(w, http.StatusBadRequest, string(domain.ErrorKindInvalidParameters), err.Error())
		return
	}
	a.error(w, http.StatusInternalServerError, "internal", "failed to read the request")
}

func (a *App) generationError(w http.ResponseWriter, res domain.GenerationResult) {
	body := map[string]string{
		"error": res.Message,
		"kind":  string(res.ErrorKind),
	}
	if res.Suggestion != "" {
		body["suggestion"] = res.Suggestion
	}
	a.json(w, statusForKind(res.ErrorKind), body)
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindInvalidParameters:
		return http.StatusBadRequest
	case domain.ErrorKindRateLimited:
		return http.StatusTooManyRequests
	case domain.ErrorKindTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrorKindContentFiltered:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
