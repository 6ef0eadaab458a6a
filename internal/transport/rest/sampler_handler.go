package rest

import (
	"context"
	"net/http"

	"netsampler/internal/domain"
	"netsampler/internal/logger"
)

type SamplerController interface {
	Start(ctx context.Context) error
	Stop()
	Status() domain.SamplerStatus
}

type SamplerHandler struct {
	// runCtx outlives requests; a run started over HTTP ends with the process.
	runCtx  context.Context
	sampler SamplerController
	latest  *LatestSample
	log     logger.Logger
}

func NewSamplerHandler(runCtx context.Context, sampler SamplerController, latest *LatestSample, log logger.Logger) *SamplerHandler {
	return &SamplerHandler{
		runCtx:  runCtx,
		sampler: sampler,
		latest:  latest,
		log:     log,
	}
}

func (h *SamplerHandler) Status(w http.ResponseWriter, r *http.Request) {
	JSONSuccess(w, http.StatusOK, APIResponse{
		Data: h.sampler.Status(),
	})
}

func (h *SamplerHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.sampler.Start(h.runCtx); err != nil {
		h.log.Error("http: failed to start sampler", "error", err)
		JSONError(w, http.StatusServiceUnavailable, "Sampler could not be started.")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "Sampler started.",
		Data:    h.sampler.Status(),
	})
}

func (h *SamplerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.sampler.Stop()

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "Sampler stopped.",
		Data:    h.sampler.Status(),
	})
}

func (h *SamplerHandler) Latest(w http.ResponseWriter, r *http.Request) {
	sample, ok := h.latest.Get()
	if !ok {
		msg := "No sample has been published yet."
		if failure, failed := h.latest.Failure(); failed {
			msg = "Sampler failed: " + failure
		}
		JSONError(w, http.StatusNotFound, msg)
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Data: sample,
	})
}
