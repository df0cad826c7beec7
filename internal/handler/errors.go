package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/response"
	"github.com/grahaedukasi/graha-cbt/internal/schedule"
	"github.com/grahaedukasi/graha-cbt/internal/service"
	"github.com/grahaedukasi/graha-cbt/internal/session"
)

// denialCodes maps schedule gate reasons to API error codes.
var denialCodes = map[schedule.DenialReason]response.ErrCode{
	schedule.ReasonNotYetOpen:      response.ErrExamNotYetOpen,
	schedule.ReasonAlreadyClosed:   response.ErrExamClosed,
	schedule.ReasonNoActiveSubject: response.ErrNoActiveSubject,
}

// apiError is the transport-neutral form of a service error.
type apiError struct {
	status  int
	code    response.ErrCode
	message string
	fields  map[string]string
	// internal marks errors the client cannot act on; they get logged.
	internal bool
}

func (e apiError) text() string {
	if e.message != "" {
		return e.message
	}
	return response.GetMessage(e.code)
}

func classify(err error) apiError {
	var denied *service.ScheduleDeniedError
	if errors.As(err, &denied) {
		code, ok := denialCodes[denied.Decision.Reason]
		if !ok {
			code = response.ErrExamNotAvailable
		}
		return apiError{status: http.StatusForbidden, code: code, message: denied.Decision.Message}
	}

	var tooLarge *service.ImageTooLargeError
	if errors.As(err, &tooLarge) {
		return apiError{status: http.StatusBadRequest, code: response.ErrFileTooLarge, message: tooLarge.Message()}
	}

	var invalid *service.ValidationError
	if errors.As(err, &invalid) {
		return apiError{
			status: http.StatusBadRequest,
			code:   response.ErrValidation,
			fields: map[string]string{invalid.Field: invalid.Message},
		}
	}

	switch {
	case errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrQuestionNotFound):
		return apiError{status: http.StatusNotFound, code: response.ErrNotFound}
	case errors.Is(err, service.ErrSessionNotFound):
		return apiError{status: http.StatusConflict, code: response.ErrSessionNotStarted}
	case errors.Is(err, service.ErrNotCompleted):
		return apiError{status: http.StatusConflict, code: response.ErrExamNotCompleted}
	case errors.Is(err, service.ErrInvalidImport):
		return apiError{
			status: http.StatusBadRequest,
			code:   response.ErrInvalidPayload,
			fields: map[string]string{"detail": err.Error()},
		}
	case errors.Is(err, service.ErrUnsupportedFileType):
		return apiError{status: http.StatusBadRequest, code: response.ErrUnsupportedFile}
	case errors.Is(err, service.ErrFileTooLarge):
		return apiError{status: http.StatusBadRequest, code: response.ErrFileTooLarge}
	case errors.Is(err, session.ErrAlreadyCompleted):
		return apiError{status: http.StatusConflict, code: response.ErrExamAlreadyDone}
	case errors.Is(err, session.ErrNoQuestions):
		return apiError{status: http.StatusConflict, code: response.ErrNoQuestions}
	case errors.Is(err, session.ErrNotActive):
		return apiError{status: http.StatusConflict, code: response.ErrSessionNotActive}
	case errors.Is(err, session.ErrUnknownQuestion),
		errors.Is(err, session.ErrOutOfRange):
		return apiError{status: http.StatusBadRequest, code: response.ErrInvalidPayload}
	case errors.Is(err, session.ErrNoPendingFinish):
		return apiError{status: http.StatusConflict, code: response.ErrFinishNotRequested}
	case errors.Is(err, session.ErrSubmitInProgress):
		return apiError{status: http.StatusConflict, code: response.ErrSubmitInProgress}
	case errors.Is(err, session.ErrSubmitFailed):
		return apiError{
			status:   http.StatusInternalServerError,
			code:     response.ErrSubmitFailed,
			message:  session.SubmitFailedMessage,
			internal: true,
		}
	default:
		return apiError{status: http.StatusInternalServerError, code: response.ErrInternal, internal: true}
	}
}

// failFromError writes the envelope matching err. Errors the client cannot
// act on are logged.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	e := classify(err)
	if e.internal {
		log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", response.RequestID(c)).
			Msg("Request failed")
	}

	switch {
	case e.fields != nil:
		response.FailWithFields(c, e.status, e.code, e.fields)
	case e.message != "":
		response.FailWithMessage(c, e.status, e.code, e.message)
	default:
		response.Fail(c, e.status, e.code)
	}
}
