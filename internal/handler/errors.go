package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contenthub/internal/service"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	StatusCode int                 `json:"status_code"`
	Message    string              `json:"message"`
	Details    string              `json:"details,omitempty"` // only when APP_ENV=dev
	Errors     map[string][]string `json:"errors,omitempty"`  // field -> messages
}

var codeStatus = map[string]int{
	service.CodeConflict:     http.StatusConflict,
	service.CodeUnauthorized: http.StatusUnauthorized,
	service.CodeForbidden:    http.StatusForbidden,
	service.CodeNotFound:     http.StatusNotFound,
	service.CodeValidation:   http.StatusBadRequest,
}

// NewErrorHandler maps service error codes and echo HTTP errors onto status
// codes and writes errorResponse.  Anything unrecognised is a 500 whose
// cause is logged and, in dev, echoed in details.
func NewErrorHandler(dev bool, logger *slog.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		resp := errorResponse{StatusCode: http.StatusInternalServerError, Message: "internal server error"}

		var he *echo.HTTPError
		if status, ok := codeStatus[service.ErrorCode(err)]; ok {
			resp.StatusCode = status
			resp.Message = publicMessage(err)
			resp.Errors = service.ValidationFields(err)
		} else if errors.As(err, &he) {
			resp.StatusCode = he.Code
			resp.Message = http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok && m != "" {
				resp.Message = m
			}
		} else {
			logger.Error("unhandled error",
				"method", c.Request().Method, "route", c.Path(), "error", err,
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID))
		}
		if dev {
			resp.Details = err.Error()
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(resp.StatusCode)
		} else {
			werr = c.JSON(resp.StatusCode, resp)
		}
		if werr != nil {
			logger.Warn("write error response failed", "error", werr)
		}
	}
}

// publicMessage returns the message of a coded error without the
// chain of wrapped causes.
func publicMessage(err error) string {
	if msg := service.ErrorMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}

// errBadRequest reports an unparseable request.
func errBadRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
