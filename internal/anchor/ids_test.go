package anchor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_newTransferID_format(t *testing.T) {
	id, err := newTransferID()
	require.NoError(t, err)
	assert.Len(t, id, 32)
}

func Test_newInteractiveToken_format(t *testing.T) {
	token, err := newInteractiveToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)
}

func Test_newTransferID_isUnique(t *testing.T) {
	a, err := newTransferID()
	require.NoError(t, err)
	b, err := newTransferID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
