package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type CreateGameRequest struct {
	HostID             string   `json:"host_id" validate:"omitempty,max=64"`
	HostPhone          string   `json:"host_phone" validate:"omitempty,max=20"`
	MaxTickets         int      `json:"max_tickets" validate:"omitempty,min=1,max=600"`
	NumberCallingDelay int      `json:"number_calling_delay" validate:"omitempty,min=1,max=300"` // segundos
	TicketSet          string   `json:"ticket_set" validate:"omitempty,max=64"`
	SelectedPrizes     []string `json:"selected_prizes" validate:"required,min=1,dive,required"`
}

// campos ausentes não mudam
type UpdateSettingsRequest struct {
	NumberCallingDelay *int     `json:"number_calling_delay" validate:"omitempty,min=1,max=300"`
	TicketSet          *string  `json:"ticket_set" validate:"omitempty,min=1,max=64"`
	SelectedPrizes     []string `json:"selected_prizes" validate:"omitempty,min=1,dive,required"`
	MaxTickets         *int     `json:"max_tickets" validate:"omitempty,min=1,max=600"`
}

type BookTicketsRequest struct {
	PlayerName    string  `json:"player_name" validate:"required,max=100"`
	PlayerPhone   *string `json:"player_phone" validate:"omitempty,max=20"`
	TicketNumbers []int   `json:"ticket_numbers" validate:"required,min=1,max=100,dive,min=1"`
}

type UpdatePlayerRequest struct {
	PlayerName  string  `json:"player_name" validate:"required,max=100"`
	PlayerPhone *string `json:"player_phone" validate:"omitempty,max=20"`
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate confere as tags do request e devolve uma mensagem por campo.
func Validate(req any) error {
	err := instance().Struct(req)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", f.Field(), f.Tag(), f.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field(), f.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
