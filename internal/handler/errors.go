package handler

import (
	"errors"
	"net/http"

	"tanya/internal/domain"
	"tanya/internal/httputil"
)

// handleError maps exchange failures onto HTTP responses. Messages are
// short and display-safe; raw provider bodies never pass through beyond
// the truncated excerpt already inside ProviderError.
func handleError(w http.ResponseWriter, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	if errors.Is(err, domain.ErrIterationLimit) {
		httputil.RespondError(w, http.StatusInternalServerError, "could not complete the conversation")
		return
	}

	httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
}
