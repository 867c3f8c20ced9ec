package message

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_Encode(t *testing.T) {
	assert.Equal(t, "powerOn;", Encode("powerOn"))
	assert.Equal(t, "setCoords:#X7#Y4;", Encode("setCoords", P("X", IntValue(7)), P("Y", IntValue(4))))

	cmd := NewCommand("setSpinPositionOffset",
		P("X", FloatValue(7)),
		P("Y", FloatValue(6.232)),
		P("Z", FloatValue(-1.866)),
	)
	assert.Equal(t, "setSpinPositionOffset:#X7.0#Y6.232#Z-1.866;", cmd.Encode())

	cmd.FloatDigits = 3
	assert.Equal(t, "setSpinPositionOffset:#X7.000#Y6.232#Z-1.866;", cmd.Encode())
	assert.Equal(t, cmd.Encode(), cmd.String())
}

func TestDecode_LeftInverseOfEncode(t *testing.T) {
	tags := []string{"X", "Y", "Z", "RX", "RY", "RZ"}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		n := rng.Intn(len(tags) + 1)
		params := make([]Param, 0, n)
		want := State{}
		for _, tag := range tags[:n] {
			var v Value
			if rng.Intn(2) == 0 {
				v = IntValue(rng.Int63n(20001) - 10000)
			} else {
				v = FloatValue(float64(rng.Int63n(2000001)-1000000) / 1000)
			}
			params = append(params, P(tag, v))
			want[Tag(tag)] = v
		}

		cmd := NewCommand("setAxis", params...)
		reply, err := Decode(cmd.Encode())
		require.NoError(t, err, cmd.Encode())
		require.Equal(t, "setAxis", reply.Command)
		require.Empty(t, reply.Result)
		require.Equal(t, want, reply.State, cmd.Encode())
	}
}
