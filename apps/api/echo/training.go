package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/certification"
	"github.com/trezcool/academy/core/progress"
)

type trainingApi struct {
	svc     *progress.Service
	certSvc certification.Gate
}

func registerTrainingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *progress.Service, certSvc certification.Gate) {
	api := trainingApi{svc: svc, certSvc: certSvc}

	tg := g.Group("/training", jwt)
	tg.GET("", api.dashboard)
	tg.GET("/courses/search", api.searchCourses)
	tg.GET("/courses/:id", api.courseOverview)
	tg.GET("/modules/:id", api.viewModule)
	tg.POST("/modules/:id/complete", api.completeModule)
}

func (api *trainingApi) dashboard(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	rctx := ctx.Request().Context()

	dash, err := api.svc.Dashboard(rctx, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	if dash.IsCertified, err = api.certSvc.IsCertified(rctx, claims.Subject); err != nil {
		return errors.Wrap(err, "checking certification")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *trainingApi) searchCourses(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	filter := new(catalog.CourseFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []catalog.Course{})
	}
	filter.Clean()
	status := core.CleanString(ctx.QueryParam("status"), true /* lower */)

	courses, err := api.svc.SearchCourses(ctx.Request().Context(), claims.Subject, *filter, status)
	if err != nil {
		return errors.Wrap(err, "searching courses")
	}
	if courses == nil {
		courses = []catalog.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *trainingApi) courseOverview(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	overview, err := api.svc.CourseOverview(ctx.Request().Context(), claims.Subject, id)
	if err != nil {
		return errors.Wrap(err, "getting course overview")
	}
	return ctx.JSON(http.StatusOK, overview)
}

func (api *trainingApi) viewModule(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	view, err := api.svc.StartModule(ctx.Request().Context(), claims.Subject, id)
	if err != nil {
		return errors.Wrap(err, "starting module")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *trainingApi) completeModule(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data CompleteModuleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteModuleRequest")
	}
	if data.TimeSpentMinutes < 0 {
		data.TimeSpentMinutes = 0
	}

	prog, err := api.svc.CompleteModule(ctx.Request().Context(), claims.Subject, id, data.TimeSpentMinutes)
	if err != nil {
		return errors.Wrap(err, "completing module")
	}
	return ctx.JSON(http.StatusOK, prog)
}

type CompleteModuleRequest struct {
	TimeSpentMinutes int `json:"time_spent_minutes"`
}
