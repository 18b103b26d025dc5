package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academy/core/assessment"
	"github.com/trezcool/academy/core/certification"
)

type assessmentApi struct {
	svc     *assessment.Service
	certSvc certification.Gate
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *assessment.Service, certSvc certification.Gate) {
	api := assessmentApi{svc: svc, certSvc: certSvc}

	ag := g.Group("/assessments", jwt)
	ag.GET("", api.listAvailable)
	ag.GET("/:id/attempts", api.listAttempts)
	ag.POST("/:id/start", api.start)

	tg := g.Group("/attempts", jwt)
	tg.GET("/:id", api.render)
	tg.POST("/:id/submit", api.submit)
	tg.GET("/:id/result", api.result)

	g.GET("/certification", api.certification, jwt)
}

func (api *assessmentApi) listAvailable(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	list, err := api.svc.ListAvailable(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing assessments")
	}
	if list == nil {
		list = []assessment.AvailableAssessment{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *assessmentApi) listAttempts(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	attempts, err := api.svc.ListAttempts(ctx.Request().Context(), claims.Subject, id)
	if err != nil {
		return errors.Wrap(err, "listing attempts")
	}
	if attempts == nil {
		attempts = []assessment.Attempt{}
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *assessmentApi) start(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	att, err := api.svc.Start(ctx.Request().Context(), claims.Subject, id)
	if err != nil {
		return errors.Wrap(err, "starting attempt")
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *assessmentApi) render(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	view, err := api.svc.Render(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rendering attempt")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *assessmentApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data SubmitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}
	answers, err := data.answers()
	if err != nil {
		return err
	}

	att, err := api.svc.Submit(ctx.Request().Context(), claims.Subject, ctx.Param("id"), answers)
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *assessmentApi) result(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	res, err := api.svc.Result(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting attempt result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *assessmentApi) certification(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	cert, found, err := api.certSvc.Get(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting certification")
	}
	if !found {
		cert = certification.Certification{UserID: claims.Subject}
	}
	return ctx.JSON(http.StatusOK, cert)
}
