package resilience

import (
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"tagged transient", NewTransientError(eris.New("503"), 503), true},
		{"wrapped transient", eris.Wrap(NewTransientError(eris.New("503"), 503), "route"), true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"reset by message", eris.New("read tcp: connection reset by peer"), true},
		{"io timeout by message", eris.New("dial tcp: i/o timeout"), true},
		{"plain error", eris.New("no such costing model"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}
