package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_TransferStatus_IsTerminal(t *testing.T) {
	terminal := []TransferStatus{StatusCompleted, StatusError, StatusRefunded}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}

	nonTerminal := []TransferStatus{StatusIncomplete, StatusPendingUserTransferStart, StatusPendingAnchor, StatusPendingExternal, StatusPendingUser}
	for _, s := range nonTerminal {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}

func Test_Transfer_StatusETA(t *testing.T) {
	eta, ok := Transfer{Status: StatusIncomplete}.StatusETA()
	assert.True(t, ok)
	assert.Equal(t, 3, eta)

	_, ok = Transfer{Status: StatusPendingAnchor}.StatusETA()
	assert.False(t, ok)

	_, ok = Transfer{Status: StatusCompleted}.StatusETA()
	assert.False(t, ok)
}
