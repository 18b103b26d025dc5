package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academy/core"
)

// ordering reads the "ordering" query param.
func ordering(ctx echo.Context) []core.DBOrdering {
	return core.ParseOrdering(ctx.QueryParam("ordering"))
}

// intParam reads the path param `name` as a positive integer ID; anything else is a 404.
func intParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// SubmitRequest maps question IDs to the selected option IDs.
// Unanswered questions are simply left out.
type SubmitRequest struct {
	Answers map[string]int `json:"answers"`
}

func (sr SubmitRequest) answers() (map[int]int, error) {
	answers := make(map[int]int, len(sr.Answers))
	for k, optID := range sr.Answers {
		qID, err := strconv.Atoi(k)
		if err != nil {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "answers", Error: "keys must be question IDs"})
		}
		answers[qID] = optID
	}
	return answers, nil
}
