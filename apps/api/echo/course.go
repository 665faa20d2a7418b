package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dripfeed/core/course"
)

type courseApi struct {
	svc course.ServiceInterface
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc course.ServiceInterface) {
	api := courseApi{svc: svc}

	// authed endpoints
	cg := g.Group("/courses/:id", jwt, subjectRequiredMiddleware)

	// drip schedule
	cg.GET("/drip-schedule", api.previewSchedule)
	cg.GET("/drip-schedule/enrollments/:enrollmentID", api.enrollmentSchedule)
	cg.PUT("/drip-settings", api.updateDripSettings)
	cg.PUT("/lessons/drip-settings", api.updateLessonDripSettings)

	// paywall
	cg.GET("/access", api.access)
	cg.GET("/preview", api.preview)
	cg.PUT("/preview-lessons", api.setPreviewLessons)
	cg.PUT("/paywall-settings", api.updatePaywallSettings)
}

// Handlers

func (api *courseApi) previewSchedule(ctx echo.Context) error {
	callerID, err := getCallerID(ctx)
	if err != nil {
		return err
	}

	sched, err := api.svc.PreviewSchedule(ctx.Request().Context(), ctx.Param("id"), callerID)
	if err != nil {
		return errors.Wrap(err, "building preview schedule")
	}
	return ctx.JSON(http.StatusOK, sched)
}

func (api *courseApi) enrollmentSchedule(ctx echo.Context) error {
	callerID, err := getCallerID(ctx)
	if err != nil {
		return err
	}

	sched, err := api.svc.EnrollmentSchedule(ctx.Request().Context(), ctx.Param("id"), ctx.Param("enrollmentID"), callerID)
	if err != nil {
		return errors.Wrap(err, "building enrollment schedule")
	}
	return ctx.JSON(http.StatusOK, sched)
}

func (api *courseApi) updateDripSettings(ctx echo.Context) error {
	callerID, err := getCallerID(ctx)
	if err != nil {
		return err
	}
	var data course.UpdateDripSettings
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}

	res, err := api.svc.UpdateDripSettings(ctx.Request().Context(), ctx.Param("id"), callerID, data)
	if err != nil {
		return errors.Wrap(err, "updating drip settings")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *courseApi) updateLessonDripSettings(ctx echo.Context) error {
	callerID, err := getCallerID(ctx)
	if err != nil {
		return err
	}
	var data course.UpdateLessonDrip
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}

	if err = api.svc.UpdateLessonDripSettings(ctx.Request().Context(), ctx.Param("id"), callerID, data); err != nil {
		return errors.Wrap(err, "updating lessons drip settings")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"updated": len(data.Lessons)})
}

func (api *courseApi) access(ctx echo.Context) error {
	callerID, err := getCallerID(ctx)
	if err != nil {
		return err
	}

	decision, err := api.svc.HasAccess(ctx.Request().Context(), ctx.Param("id"), callerID)
	if err != nil {
		return errors.Wrap(err, "checking course access")
	}
	return ctx.JSON(http.StatusOK, decision)
}

func (api *courseApi) preview(ctx echo.Context) error {
	preview, err := api.svc.PreviewContent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting preview content")
	}
	return ctx.JSON(http.StatusOK, preview)
}

func (api *courseApi) setPreviewLessons(ctx echo.Context) error {
	callerID, err := getCallerID(ctx)
	if err != nil {
		return err
	}
	var data PreviewLessonsRequest
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}

	preview, err := api.svc.SetPreviewLessons(ctx.Request().Context(), ctx.Param("id"), callerID, data.FreeLessonIDs)
	if err != nil {
		return errors.Wrap(err, "setting preview lessons")
	}
	return ctx.JSON(http.StatusOK, preview)
}

func (api *courseApi) updatePaywallSettings(ctx echo.Context) error {
	callerID, err := getCallerID(ctx)
	if err != nil {
		return err
	}
	var data course.UpdatePaywallSettings
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}

	summary, err := api.svc.UpdatePaywallSettings(ctx.Request().Context(), ctx.Param("id"), callerID, data)
	if err != nil {
		return errors.Wrap(err, "updating paywall settings")
	}
	return ctx.JSON(http.StatusOK, summary)
}
