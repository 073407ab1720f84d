package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ajira/core/profile"
)

type schoolApi struct {
	deps ServerDeps
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{deps: deps}

	sg := g.Group("/schools", jwt)

	// own profile
	mg := sg.Group("/me", schoolMiddleware())
	mg.GET("", api.retrieveOwn)
	mg.PUT("", api.updateOwn)

	// unlocking hands out the unredacted candidate record; payment gates it
	sg.POST("/unlock/:teacherID", api.unlockTeacher, schoolMiddleware())

	// back office
	sg.GET("", api.query, adminMiddleware())
	sg.PUT("/:id/paid", api.setPaid, adminMiddleware())
}

// Handlers

func (api *schoolApi) retrieveOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	s, err := api.deps.ProfileSvc.GetSchoolByAccountID(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding school by account ID")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *schoolApi) updateOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	s, err := api.deps.ProfileSvc.GetSchoolByAccountID(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding school by account ID")
	}

	var data profile.UpdateSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchool")
	}
	if err := data.Validate(s, api.deps.Validate); err != nil {
		return err
	}

	s, err = api.deps.ProfileSvc.UpdateSchool(s.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *schoolApi) unlockTeacher(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	s, err := api.deps.ProfileSvc.GetSchoolByAccountID(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding school by account ID")
	}

	t, err := api.deps.ProfileSvc.UnlockTeacher(s.ID, ctx.Param("teacherID"))
	if err != nil {
		return errors.Wrap(err, "unlocking teacher")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *schoolApi) query(ctx echo.Context) error {
	schools, err := api.deps.ProfileSvc.QueryAllSchools()
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []profile.SchoolAccount{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *schoolApi) setPaid(ctx echo.Context) error {
	var data SetPaidRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetPaidRequest")
	}

	s, err := api.deps.ProfileSvc.SetSchoolPaid(ctx.Param("id"), data.HasPaid)
	if err != nil {
		return errors.Wrap(err, "setting school paid flag")
	}
	return ctx.JSON(http.StatusOK, s)
}

type SetPaidRequest struct {
	HasPaid bool `json:"has_paid"`
}
