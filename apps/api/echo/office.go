package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/certification"
)

type officeApi struct {
	svc *catalog.Service
}

func registerOfficeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *catalog.Service, certSvc certification.Gate) {
	api := officeApi{svc: svc}

	og := g.Group("/offices", jwt, certifiedMiddleware(certSvc))
	og.GET("", api.query)
	og.GET("/:id", api.retrieve)
}

func (api *officeApi) query(ctx echo.Context) error {
	offices, err := api.svc.QueryOffices(ctx.Request().Context(), true)
	if err != nil {
		return errors.Wrap(err, "querying offices")
	}
	if offices == nil {
		offices = []catalog.Office{}
	}
	return ctx.JSON(http.StatusOK, offices)
}

func (api *officeApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	office, err := api.svc.GetOffice(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting office")
	}
	if !office.IsActive {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, OfficeResponse{Office: office, Schedule: office.WeeklySchedule()})
}

type OfficeResponse struct {
	catalog.Office
	Schedule []catalog.DaySchedule `json:"schedule"`
}
