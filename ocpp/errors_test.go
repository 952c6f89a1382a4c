package ocpp

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/ocppnet/ocppnet/addressing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultCodes(t *testing.T) {
	assert.Len(t, ResultCodes(), 14)

	for _, code := range ResultCodes() {
		assert.True(t, code.Known())
		assert.NotEmpty(t, code.Description())
	}

	assert.False(t, ResultCode("Whatever").Known())
	assert.Equal(t, CodeGenericError.Description(), ResultCode("Whatever").Description())
}

func TestCallError(t *testing.T) {
	var err error = NewCallError(CodeNotSupported, "no way", nil)

	var cerr *CallError

	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &cerr))
	assert.Equal(t, CodeNotSupported, cerr.Code)
	assert.Equal(t, "NotSupported: no way", err.Error())
}

func TestFormationViolation(t *testing.T) {
	t.Run("embeds valid JSON as is", func(t *testing.T) {
		env := FormationViolation("1", []byte(`[2,"1"]`), "too short")

		assert.Equal(t, KindRequestError, env.Kind)
		assert.Equal(t, CodeFormationViolation, env.ErrorCode)
		assert.Contains(t, env.ErrorDescription, "too short")
		assert.JSONEq(t, `{"reason":"too short","request":[2,"1"]}`, string(env.ErrorDetails))
	})

	t.Run("embeds invalid JSON as a string", func(t *testing.T) {
		env := FormationViolation("", []byte(`[2,`), "not json")

		assert.JSONEq(t, `{"reason":"not json","request":"[2,"}`, string(env.ErrorDetails))
	})
}

func TestInternalErrorFor(t *testing.T) {
	req := NewRequest("r1", "Reset", json.RawMessage(`{}`),
		WithMode(ModeOverlay),
		WithNetworkPath(addressing.NewNetworkPath("CS1", "NN1")),
		WithEventTrackingID("evt"),
	)

	env := InternalErrorFor(req, errors.New("boom"), []byte("goroutine 1\nmain.main()\n"))

	assert.Equal(t, RequestID("r1"), env.RequestID)
	assert.Equal(t, CodeInternalError, env.ErrorCode)
	assert.Equal(t, EventTrackingID("evt"), env.EventTrackingID)
	assert.Equal(t, ModeOverlay, env.NetworkingMode)
	assert.Equal(t, addressing.To("CS1"), env.Destination)
	assert.True(t, env.NetworkPath.IsEmpty())
	assert.JSONEq(t, `{"exception":"boom","stackTrace":["goroutine 1","main.main()"]}`, string(env.ErrorDetails))
}

func TestReject(t *testing.T) {
	req := NewRequest("r1", "Reset", json.RawMessage(`{}`), WithNetworkPath(addressing.NewNetworkPath("CS1")))

	env := RequestErrorFor(req, NewCallError(CodeSecurityError, "bad signature", json.RawMessage(`{"k":"v"}`)))

	assert.Equal(t, CodeSecurityError, env.ErrorCode)
	assert.Equal(t, "bad signature", env.ErrorDescription)
	assert.Equal(t, `{"k":"v"}`, string(env.ErrorDetails))
	assert.Equal(t, addressing.NodeID("CS1"), env.Destination.Next())
}
