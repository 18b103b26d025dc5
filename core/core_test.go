package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		in   string
		want []DBOrdering
	}{
		{in: ""},
		{in: " , -"},
		{in: "name", want: []DBOrdering{{Field: "name", Ascending: true}}},
		{in: "-created_at, name", want: []DBOrdering{{Field: "created_at"}, {Field: "name", Ascending: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrdering(tt.in))
		})
	}
	assert.Equal(t, "name DESC", DBOrdering{Field: "name"}.String())
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Awe Some", CleanString("  Awe Some\n"))
	assert.Equal(t, "awe@test.cd", CleanString(" AWE@test.cd ", true))
}

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	InitValidators(validate, translator)

	type slot struct {
		Opens string `json:"opens" validate:"clock"`
		Label string `json:"label" validate:"required,notblank"`
	}
	tests := []struct {
		name string
		in   slot
		want map[string]string
	}{
		{name: "valid", in: slot{Opens: "08:30", Label: "morning"}},
		{name: "empty clock", in: slot{Label: "any"}},
		{name: "bad clock", in: slot{Opens: "24:00", Label: "late"}, want: map[string]string{"opens": "opens must be a time of day formatted as HH:MM"}},
		{name: "missing label", in: slot{Opens: "08:00"}, want: map[string]string{"label": "this field is required"}},
		{name: "blank label", in: slot{Label: "   "}, want: map[string]string{"label": "label must not be blank"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.in)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			got := make(map[string]string, len(vErrs))
			for _, fe := range vErrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
