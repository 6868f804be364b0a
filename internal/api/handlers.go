// Package api implements the HTTP handlers of the report desk backend.
package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/reportdesk/backend/internal/storage"
)

// MIMEApplicationMsgpack is the content type of msgpack responses.
const MIMEApplicationMsgpack = "application/msgpack"

// sendAttachment writes data as a file download named filename.
func sendAttachment(c echo.Context, filename, contentType string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	return c.Blob(http.StatusOK, contentType, data)
}

// wantsMsgpack reports whether the client asked for a msgpack body.
func wantsMsgpack(c echo.Context) bool {
	if c.QueryParam("encoding") == "msgpack" {
		return true
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), MIMEApplicationMsgpack)
}

// isJSONRequest reports whether the request declares a JSON body.
func isJSONRequest(c echo.Context) bool {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == echo.MIMEApplicationJSON || strings.HasSuffix(mediaType, "+json")
}

// invalidNameError maps storage.ErrInvalidName to a 400 reported under key.
func invalidNameError(err error, key string) error {
	if errors.Is(err, storage.ErrInvalidName) {
		return NewBadRequestError(fmt.Sprintf("Invalid name: %v", err), nil).reportedAs(key)
	}
	return NewInternalError(err)
}
