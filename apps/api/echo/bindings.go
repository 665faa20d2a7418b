package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dripfeed/core"
)

type PreviewLessonsRequest struct {
	FreeLessonIDs []string `json:"free_lesson_ids"`
}

// bindJSON binds the request body to data, rejecting malformed payloads as validation errors.
func bindJSON(ctx echo.Context, data interface{}) error {
	if err := ctx.Bind(data); err != nil {
		if herr, ok := err.(*echo.HTTPError); ok {
			msg, _ := herr.Message.(string)
			if msg == "" {
				msg = "invalid request body"
			}
			return core.NewValidationError(errors.New(msg))
		}
		return errors.Wrap(err, "binding request body")
	}
	return nil
}
