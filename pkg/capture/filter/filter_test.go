package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ipv4Frame is a minimal Ethernet+IPv4 frame with the given protocol.
func ipv4Frame(proto byte) []byte {
	b := make([]byte, 54)
	b[12], b[13] = 0x08, 0x00
	b[14] = 0x45
	b[23] = proto
	return b
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		hasErr bool
	}{
		{name: "protocol only", expr: "udp"},
		{name: "tcp", expr: "tcp"},
		{name: "port", expr: "port 5060"},
		{name: "host", expr: "host 192.168.1.1"},
		{name: "protocol and port", expr: "udp port 53"},
		{name: "garbage", expr: "(((", hasErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insts, err := Compile(tt.expr)
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, insts)
		})
	}
}

func TestCompileRaw(t *testing.T) {
	raw, err := CompileRaw("udp")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("udp port 53"))
	assert.Error(t, Validate("((("))
}

func TestVMClassifiesFrames(t *testing.T) {
	vm, err := NewVM("udp")
	require.NoError(t, err)

	keep, err := vm.Run(ipv4Frame(17))
	require.NoError(t, err)
	assert.Greater(t, keep, 0, "udp frame must pass a udp filter")

	keep, err = vm.Run(ipv4Frame(6))
	require.NoError(t, err)
	assert.Zero(t, keep, "tcp frame must be dropped by a udp filter")
}
