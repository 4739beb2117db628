package log

import (
	"bytes"
	"flag"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString(" DEBUG ")
	require.NoError(t, err)
	require.Equal(t, log.LevelDebug, lvl)

	_, err = LevelFromString("loud")
	require.Error(t, err)
}

func TestReadCLIConfig(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range CLIFlags("TEST") {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse([]string{"--log.level=warn", "--log.format=json", "--log.color=false"}))

	cfg := ReadCLIConfig(cli.NewContext(cli.NewApp(), set, nil))
	require.Equal(t, log.LevelWarn, cfg.Level)
	require.Equal(t, FormatJSON, cfg.Format)
	require.False(t, cfg.Color)
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, CLIConfig{Level: log.LevelInfo, Format: FormatJSON})
	logger.Debug("hidden")
	logger.Info("Transaction sent", "nonce", 3)
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"Transaction sent"`)
	require.Contains(t, buf.String(), `"nonce":3`)
}

func TestNewLoggerTextColorOnlyOnTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, CLIConfig{Level: log.LevelInfo, Format: FormatText, Color: true})
	logger.Info("Transaction sent", "nonce", 3)
	require.Contains(t, buf.String(), "Transaction sent")
	require.NotContains(t, buf.String(), "\x1b[")
}
