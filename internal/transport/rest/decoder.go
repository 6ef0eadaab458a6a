package rest

import (
	"encoding/json"
	"errors"
	"net/http"
)

var ErrInvalidBody = errors.New("invalid request body")

const maxBodyBytes = 64 << 10

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return ErrInvalidBody
	}

	return nil
}
