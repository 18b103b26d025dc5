package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academy/core"
)

// Weekdays, Monday first.
var Weekdays = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

type Office struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	Code         string        `json:"code"`
	AddressLine1 string        `json:"address_line1"`
	AddressLine2 string        `json:"address_line2"`
	City         string        `json:"city"`
	State        string        `json:"state"`
	ZipCode      string        `json:"zip_code"`
	Timezone     string        `json:"timezone"`
	Phone        string        `json:"phone"`
	Email        string        `json:"email"`
	Notes        string        `json:"notes"`
	IsActive     bool          `json:"is_active"`
	Order        int           `json:"order"`
	Hours        []OfficeHours `json:"hours"`
}

type OfficeHours struct {
	DayOfWeek  int    `json:"day_of_week" validate:"min=0,max=6"` // 0 = Monday
	IsOpen     bool   `json:"is_open"`
	OpenTime   string `json:"open_time" validate:"required_if=IsOpen true,clock"`
	CloseTime  string `json:"close_time" validate:"required_if=IsOpen true,clock"`
	BreakStart string `json:"break_start" validate:"clock"`
	BreakEnd   string `json:"break_end" validate:"required_with=BreakStart,clock"`
}

// DaySchedule is one day of an office's week.
type DaySchedule struct {
	Day        string `json:"day"`
	DayOfWeek  int    `json:"day_of_week"`
	IsOpen     bool   `json:"is_open"`
	OpenTime   string `json:"open_time,omitempty"`
	CloseTime  string `json:"close_time,omitempty"`
	BreakStart string `json:"break_start,omitempty"`
	BreakEnd   string `json:"break_end,omitempty"`
}

// WeeklySchedule returns the 7 days of the week, Monday first.
// Days without hours are closed.
func (o Office) WeeklySchedule() []DaySchedule {
	week := make([]DaySchedule, len(Weekdays))
	for i, day := range Weekdays {
		week[i] = DaySchedule{Day: day, DayOfWeek: i}
	}
	for _, h := range o.Hours {
		if h.DayOfWeek < 0 || h.DayOfWeek >= len(week) || !h.IsOpen {
			continue
		}
		d := &week[h.DayOfWeek]
		d.IsOpen = true
		d.OpenTime = h.OpenTime
		d.CloseTime = h.CloseTime
		d.BreakStart = h.BreakStart
		d.BreakEnd = h.BreakEnd
	}
	return week
}

// NewOffice contains information needed to create or replace an Office and its hours.
type NewOffice struct {
	Name         string        `json:"name" validate:"required,notblank,max=200"`
	Code         string        `json:"code" validate:"required,alphanum,max=20"`
	AddressLine1 string        `json:"address_line1"`
	AddressLine2 string        `json:"address_line2"`
	City         string        `json:"city"`
	State        string        `json:"state"`
	ZipCode      string        `json:"zip_code"`
	Timezone     string        `json:"timezone"`
	Phone        string        `json:"phone"`
	Email        string        `json:"email" validate:"omitempty,email"`
	Notes        string        `json:"notes"`
	IsActive     *bool         `json:"is_active"`
	Order        int           `json:"order" validate:"min=0"`
	Hours        []OfficeHours `json:"hours" validate:"omitempty,max=7,dive"`
}

func (no *NewOffice) Validate(validate *validator.Validate) error {
	no.Name = core.CleanString(no.Name)
	no.Code = core.CleanString(no.Code)
	no.Email = core.CleanString(no.Email, true /* lower */)
	no.Timezone = core.CleanString(no.Timezone)
	if no.Timezone == "" {
		no.Timezone = "UTC"
	}
	if err := validate.Struct(no); err != nil {
		return err
	}
	if _, err := time.LoadLocation(no.Timezone); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "timezone", Error: "unknown timezone"})
	}

	days := make(map[int]bool, len(no.Hours))
	for _, h := range no.Hours {
		if days[h.DayOfWeek] {
			return core.NewValidationError(nil, core.FieldError{Field: "hours", Error: "days must be unique"})
		}
		days[h.DayOfWeek] = true
		if h.IsOpen && h.OpenTime >= h.CloseTime {
			return core.NewValidationError(nil, core.FieldError{Field: "hours", Error: "open_time must be before close_time"})
		}
	}
	return nil
}

func (no NewOffice) apply(o *Office) {
	o.Name = no.Name
	o.Code = no.Code
	o.AddressLine1 = no.AddressLine1
	o.AddressLine2 = no.AddressLine2
	o.City = no.City
	o.State = no.State
	o.ZipCode = no.ZipCode
	o.Timezone = no.Timezone
	o.Phone = no.Phone
	o.Email = no.Email
	o.Notes = no.Notes
	o.IsActive = boolOr(no.IsActive, true)
	o.Order = no.Order
	o.Hours = append([]OfficeHours(nil), no.Hours...)
}
