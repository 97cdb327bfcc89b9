package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("LEDGERLENS_TEST_DIR", "/srv/data")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain path untouched", in: "/var/lib/ledgerlens.db", want: "/var/lib/ledgerlens.db"},
		{name: "bare tilde", in: "~", want: home},
		{name: "tilde prefix", in: "~/.local/share/ledgerlens.db", want: filepath.Join(home, ".local/share/ledgerlens.db")},
		{name: "env var", in: "$LEDGERLENS_TEST_DIR/ledgerlens.db", want: "/srv/data/ledgerlens.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
