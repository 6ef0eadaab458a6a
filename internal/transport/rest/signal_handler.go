package rest

import (
	"net/http"
	"time"

	"netsampler/internal/core/radio"
)

type SignalIngest interface {
	Push(r radio.Report) bool
}

// SignalHandler accepts radio reports from an external reporter when the push
// signal source is configured.
type SignalHandler struct {
	feed SignalIngest
}

func NewSignalHandler(feed SignalIngest) *SignalHandler {
	return &SignalHandler{feed: feed}
}

func (h *SignalHandler) Push(w http.ResponseWriter, r *http.Request) {
	var report radio.Report
	if err := decodeJSON(w, r, &report); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if errs := ValidateStruct(report); errs != nil {
		JSONValidationError(w, errs)
		return
	}

	if report.At.IsZero() {
		report.At = time.Now().UTC()
	}

	if !h.feed.Push(report) {
		JSONError(w, http.StatusConflict, "Signal feed is not active; start the sampler first.")
		return
	}

	dbm, ok := report.Dbm()
	data := map[string]any{"signal_dbm": nil}
	if ok {
		data["signal_dbm"] = dbm
	}

	JSONSuccess(w, http.StatusAccepted, APIResponse{
		Message: "Signal report accepted.",
		Data:    data,
	})
}
