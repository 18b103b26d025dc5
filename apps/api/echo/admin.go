package echoapi

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academy/core/analytics"
	"github.com/trezcool/academy/core/assessment"
	"github.com/trezcool/academy/core/catalog"
)

type adminApi struct {
	catalog      *catalog.Service
	assessments  *assessment.Service
	analyticsSvc *analytics.Service
}

func registerAdminAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	catalogSvc *catalog.Service,
	assessmentSvc *assessment.Service,
	analyticsSvc *analytics.Service,
) {
	api := adminApi{catalog: catalogSvc, assessments: assessmentSvc, analyticsSvc: analyticsSvc}

	ag := g.Group("/admin", jwt, adminMiddleware())
	ag.GET("/dashboard", api.dashboard)

	ag.GET("/courses", api.queryCourses)
	ag.POST("/courses", api.createCourse)
	ag.GET("/courses/:id", api.retrieveCourse)
	ag.PUT("/courses/:id", api.updateCourse)
	ag.DELETE("/courses/:id", api.destroyCourse)

	ag.GET("/modules", api.queryModules)
	ag.POST("/modules", api.createModule)
	ag.GET("/modules/:id", api.retrieveModule)
	ag.PUT("/modules/:id", api.updateModule)
	ag.DELETE("/modules/:id", api.destroyModule)

	ag.GET("/assessments", api.queryAssessments)
	ag.POST("/assessments", api.createAssessment)
	ag.GET("/assessments/:id", api.retrieveAssessment)
	ag.PUT("/assessments/:id", api.updateAssessment)
	ag.DELETE("/assessments/:id", api.destroyAssessment)
	ag.GET("/assessments/:id/check", api.checkAssessment)
	ag.POST("/assessments/:id/questions", api.addQuestion)
	ag.DELETE("/questions/:id", api.destroyQuestion)

	ag.GET("/offices", api.queryOffices)
	ag.POST("/offices", api.createOffice)
	ag.GET("/offices/:id", api.retrieveOffice)
	ag.PUT("/offices/:id", api.updateOffice)
	ag.DELETE("/offices/:id", api.destroyOffice)

	ag.POST("/import/courses", api.importCSV(catalogSvc.ImportCourses))
	ag.POST("/import/modules", api.importCSV(catalogSvc.ImportModules))
	ag.GET("/export/courses", api.exportCSV("courses.csv", catalogSvc.ExportCourses))
	ag.GET("/export/modules", api.exportCSV("modules.csv", catalogSvc.ExportModules))
	ag.GET("/export/attempts", api.exportCSV("attempts.csv", assessmentSvc.ExportAttempts))
}

func (api *adminApi) dashboard(ctx echo.Context) error {
	dash, err := api.analyticsSvc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building admin dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

// Courses

func (api *adminApi) queryCourses(ctx echo.Context) error {
	filter := new(catalog.CourseFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []catalog.Course{})
	}
	courses, err := api.catalog.QueryCourses(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []catalog.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *adminApi) createCourse(ctx echo.Context) error {
	var data catalog.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	course, err := api.catalog.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api *adminApi) retrieveCourse(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	course, err := api.catalog.GetCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *adminApi) updateCourse(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data catalog.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	course, err := api.catalog.UpdateCourse(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *adminApi) destroyCourse(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.catalog.DeleteCourse(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Modules

func (api *adminApi) queryModules(ctx echo.Context) error {
	var courseID int
	if v := ctx.QueryParam("course_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return ctx.JSON(http.StatusOK, []catalog.Module{})
		}
		courseID = id
	}
	modules, err := api.catalog.QueryModules(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	if modules == nil {
		modules = []catalog.Module{}
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *adminApi) createModule(ctx echo.Context) error {
	var data catalog.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	module, err := api.catalog.CreateModule(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, module)
}

func (api *adminApi) retrieveModule(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	module, err := api.catalog.GetModule(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting module")
	}
	return ctx.JSON(http.StatusOK, module)
}

func (api *adminApi) updateModule(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data catalog.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	module, err := api.catalog.UpdateModule(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return ctx.JSON(http.StatusOK, module)
}

func (api *adminApi) destroyModule(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.catalog.DeleteModule(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Assessments

func (api *adminApi) queryAssessments(ctx echo.Context) error {
	assessments, err := api.catalog.QueryAssessments(ctx.Request().Context(), false)
	if err != nil {
		return errors.Wrap(err, "querying assessments")
	}
	if assessments == nil {
		assessments = []catalog.Assessment{}
	}
	return ctx.JSON(http.StatusOK, assessments)
}

func (api *adminApi) createAssessment(ctx echo.Context) error {
	var data catalog.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	asmt, err := api.catalog.CreateAssessment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating assessment")
	}
	return ctx.JSON(http.StatusCreated, asmt)
}

func (api *adminApi) retrieveAssessment(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	asmt, err := api.catalog.GetAssessment(ctx.Request().Context(), id, true)
	if err != nil {
		return errors.Wrap(err, "getting assessment")
	}
	return ctx.JSON(http.StatusOK, asmt)
}

func (api *adminApi) updateAssessment(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data catalog.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	asmt, err := api.catalog.UpdateAssessment(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating assessment")
	}
	return ctx.JSON(http.StatusOK, asmt)
}

func (api *adminApi) destroyAssessment(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.catalog.DeleteAssessment(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting assessment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) checkAssessment(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	warnings, err := api.catalog.ValidateAssessment(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "validating assessment")
	}
	return ctx.JSON(http.StatusOK, CheckResponse{Valid: len(warnings) == 0, Warnings: warnings})
}

func (api *adminApi) addQuestion(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data catalog.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	q, err := api.catalog.AddQuestion(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *adminApi) destroyQuestion(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.catalog.DeleteQuestion(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Offices

func (api *adminApi) queryOffices(ctx echo.Context) error {
	offices, err := api.catalog.QueryOffices(ctx.Request().Context(), false)
	if err != nil {
		return errors.Wrap(err, "querying offices")
	}
	if offices == nil {
		offices = []catalog.Office{}
	}
	return ctx.JSON(http.StatusOK, offices)
}

func (api *adminApi) createOffice(ctx echo.Context) error {
	var data catalog.NewOffice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOffice")
	}
	office, err := api.catalog.CreateOffice(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating office")
	}
	return ctx.JSON(http.StatusCreated, office)
}

func (api *adminApi) retrieveOffice(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	office, err := api.catalog.GetOffice(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting office")
	}
	return ctx.JSON(http.StatusOK, OfficeResponse{Office: office, Schedule: office.WeeklySchedule()})
}

func (api *adminApi) updateOffice(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data catalog.NewOffice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOffice")
	}
	office, err := api.catalog.UpdateOffice(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating office")
	}
	return ctx.JSON(http.StatusOK, office)
}

func (api *adminApi) destroyOffice(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.catalog.DeleteOffice(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting office")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Import / Export

func (api *adminApi) importCSV(importFn func(context.Context, io.Reader) (catalog.ImportResult, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		fh, err := ctx.FormFile("file")
		if err != nil {
			return errMissingFile
		}
		f, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening uploaded file")
		}
		defer f.Close()

		res, err := importFn(ctx.Request().Context(), f)
		if err != nil {
			return errors.Wrap(err, "importing CSV")
		}
		if res.Errors == nil {
			res.Errors = []catalog.RowError{}
		}
		return ctx.JSON(http.StatusOK, res)
	}
}

func (api *adminApi) exportCSV(filename string, exportFn func(context.Context, io.Writer) error) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		resp := ctx.Response()
		resp.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
		resp.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
		resp.WriteHeader(http.StatusOK)
		return errors.Wrap(exportFn(ctx.Request().Context(), resp), "exporting CSV")
	}
}

type CheckResponse struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
}
