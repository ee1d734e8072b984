package horde

// Wire shapes for the AI Horde v2 generation API. These never leak past
// this package; callers see domain.StatusSnapshot and domain errors.

type submitRequest struct {
	Prompt           string       `json:"prompt"`
	Params           submitParams `json:"params"`
	NSFW             bool         `json:"nsfw"`
	TrustedWorkers   bool         `json:"trusted_workers"`
	R2               bool         `json:"r2"`
	Models           []string     `json:"models"`
	SourceImage      string       `json:"source_image,omitempty"`
	SourceProcessing string       `json:"source_processing,omitempty"`
}

type submitParams struct {
	SamplerName       string   `json:"sampler_name"`
	CfgScale          float64  `json:"cfg_scale"`
	DenoisingStrength *float64 `json:"denoising_strength,omitempty"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	Steps             int      `json:"steps"`
	N                 int      `json:"n"`
}

type submitResponse struct {
	ID      string  `json:"id"`
	Kudos   float64 `json:"kudos"`
	Message string  `json:"message"`
}

type checkResponse struct {
	Done          bool  `json:"done"`
	Faulted       bool  `json:"faulted"`
	Processing    int   `json:"processing"`
	Waiting       int   `json:"waiting"`
	Finished      int   `json:"finished"`
	QueuePosition int   `json:"queue_position"`
	WaitTime      int   `json:"wait_time"`
	IsPossible    *bool `json:"is_possible"`
}

type statusResponse struct {
	checkResponse
	Generations []generationPayload `json:"generations"`
}

type generationPayload struct {
	Img        string `json:"img"`
	Censored   bool   `json:"censored"`
	WorkerID   string `json:"worker_id"`
	WorkerName string `json:"worker_name"`
	Model      string `json:"model"`
}

type apiError struct {
	Message string `json:"message"`
}
