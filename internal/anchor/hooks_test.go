package anchor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stellar-anchor-service/anchor/internal/data"
)

func Test_HookRegistry_triggersInRegistrationOrder(t *testing.T) {
	r := NewHookRegistry()
	var order []string

	r.On(EventDepositInitiated, func(t data.Transfer) { order = append(order, "first") })
	r.On(EventDepositInitiated, func(t data.Transfer) { order = append(order, "second") })
	r.On(EventWithdrawalInitiated, func(t data.Transfer) { order = append(order, "unrelated") })

	r.Trigger(EventDepositInitiated, data.Transfer{ID: "abc"})

	assert.Equal(t, []string{"first", "second"}, order)
}

func Test_HookRegistry_triggerWithNoListenersIsNoop(t *testing.T) {
	r := NewHookRegistry()
	assert.NotPanics(t, func() {
		r.Trigger(EventTransferStatusChanged, data.Transfer{})
	})
}

func Test_Hooks_runDeposit_returnsOverride(t *testing.T) {
	h := Hooks{
		OnDeposit: func(t data.Transfer) (*HookResult, error) {
			return &HookResult{How: "custom how"}, nil
		},
	}
	result, err := h.runDeposit(data.Transfer{})
	assert.NoError(t, err)
	assert.Equal(t, "custom how", result.How)
}

func Test_Hooks_zeroValueFallsBackToDefaults(t *testing.T) {
	var h Hooks
	result, err := h.runDeposit(data.Transfer{})
	assert.NoError(t, err)
	assert.Nil(t, result)

	html, ok := h.runMoreInfo(data.Transfer{})
	assert.False(t, ok)
	assert.Empty(t, html)
}
