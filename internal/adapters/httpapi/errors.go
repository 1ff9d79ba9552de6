package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/httpjson"
	"github.com/yemenflix/yflix/internal/validate"
)

// writeError traduit les erreurs applicatives en réponses JSON.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := app.CodeOf(err)

	var verrs validate.Errors
	if errors.As(err, &verrs) {
		fields := make([]httpjson.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, httpjson.FieldError{Field: fe.Field, Message: fe.Message})
		}
		httpjson.WriteErrorBody(w, http.StatusBadRequest, httpjson.ErrorBody{
			Error:  "validation failed",
			Code:   "validation_failed",
			Fields: fields,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, app.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, app.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, app.ErrInvalidTransition):
		status = http.StatusConflict
		if code == "" {
			code = "invalid_state"
		}
	case code == "invalid_params":
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		msg = "internal error"
	}
	httpjson.WriteErrorBody(w, status, httpjson.ErrorBody{Error: msg, Code: code})
}

func writeDecodeError(w http.ResponseWriter, err error) {
	httpjson.WriteErrorBody(w, http.StatusBadRequest, httpjson.ErrorBody{Error: err.Error(), Code: "invalid_json"})
}
