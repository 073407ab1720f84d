package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ajira/core/profile"
)

type teacherApi struct {
	deps ServerDeps
}

func registerTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := teacherApi{deps: deps}

	tg := g.Group("/teachers", jwt)

	// own profile
	mg := tg.Group("/me", teacherMiddleware())
	mg.GET("", api.retrieveOwn)
	mg.PUT("", api.updateOwn)

	// school browsing; contact and document fields stay redacted until the
	// candidate is unlocked
	tg.GET("/browse", api.browse, schoolMiddleware())

	// back office
	tg.GET("", api.query, adminMiddleware())
	tg.GET("/statuses", api.queryStatuses, adminMiddleware())
	tg.PUT("/:id/status", api.transitionStatus, adminMiddleware())
}

// Handlers

func (api *teacherApi) retrieveOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	t, err := api.deps.ProfileSvc.GetTeacherByAccountID(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding teacher by account ID")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teacherApi) updateOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	t, err := api.deps.ProfileSvc.GetTeacherByAccountID(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding teacher by account ID")
	}

	var data profile.UpdateTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}
	if err := data.Validate(t, api.deps.Validate); err != nil {
		return err
	}

	t, err = api.deps.ProfileSvc.UpdateTeacher(t.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teacherApi) browse(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	school, err := api.deps.ProfileSvc.GetSchoolByAccountID(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding school by account ID")
	}

	filter := new(profile.TeacherFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []profile.Teacher{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	teachers, err := api.deps.ProfileSvc.FilterTeachers(filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "filtering teachers")
	}

	out := make([]profile.Teacher, 0, len(teachers))
	for _, t := range teachers {
		if school.HasUnlocked(t.ID) {
			out = append(out, t)
		} else {
			out = append(out, t.Redacted())
		}
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *teacherApi) query(ctx echo.Context) error {
	filter := new(profile.TeacherFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []profile.Teacher{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	teachers, err := api.deps.ProfileSvc.FilterTeachers(filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "filtering teachers")
	}
	if teachers == nil {
		teachers = []profile.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *teacherApi) queryStatuses(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, profile.Statuses)
}

func (api *teacherApi) transitionStatus(ctx echo.Context) error {
	var data StatusTransitionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusTransitionRequest")
	}
	if err := data.Validate(api.deps); err != nil {
		return err
	}

	t, err := api.deps.ProfileSvc.TransitionStatus(ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "transitioning status")
	}
	return ctx.JSON(http.StatusOK, t)
}

type StatusTransitionRequest struct {
	Status profile.ApplicationStatus `json:"status" validate:"required"`
}

func (sr *StatusTransitionRequest) Validate(deps ServerDeps) error {
	return deps.Validate.Struct(sr)
}
