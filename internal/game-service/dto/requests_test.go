package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CreateGame(t *testing.T) {
	assert.NoError(t, Validate(CreateGameRequest{SelectedPrizes: []string{"top_line"}}))

	err := Validate(CreateGameRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selected_prizes: required")

	err = Validate(CreateGameRequest{SelectedPrizes: []string{"top_line"}, NumberCallingDelay: 900})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "number_calling_delay: max=300")
}

func TestValidate_BookTickets(t *testing.T) {
	assert.NoError(t, Validate(BookTicketsRequest{PlayerName: "Asha", TicketNumbers: []int{1, 2}}))

	err := Validate(BookTicketsRequest{PlayerName: "Asha", TicketNumbers: []int{0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min=1")

	err = Validate(BookTicketsRequest{TicketNumbers: []int{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "player_name: required")
}

func TestValidate_UpdateSettingsSkipsAbsentFields(t *testing.T) {
	assert.NoError(t, Validate(UpdateSettingsRequest{}))

	zero := 0
	assert.Error(t, Validate(UpdateSettingsRequest{MaxTickets: &zero}))
}
