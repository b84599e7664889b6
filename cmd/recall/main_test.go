package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestSetupLogger(t *testing.T) {
	newApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
	}

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			t.Run(level, func(t *testing.T) {
				err := newApp().Run([]string{"test", "--log-level", level})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		err := newApp().Run([]string{"test", "--log-level", "DeBuG"})
		require.NoError(t, err)
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp().Run([]string{"test", "--log-level", "loud"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestCommonFlags(t *testing.T) {
	flags := commonFlags()

	names := make(map[string]bool)
	for _, flag := range flags {
		for _, name := range flag.Names() {
			names[name] = true
		}
	}

	assert.True(t, names["config"])
	assert.True(t, names["c"])
	assert.True(t, names["workspace"])
	assert.True(t, names["w"])
	assert.True(t, names["embedding-host"])
	assert.True(t, names["embedding-model"])
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 10))
	assert.Equal(t, "multi line", snippet("multi\nline", 20))
	assert.Equal(t, "0123456789…", snippet("0123456789abcdef", 10))
}
