package aaservice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrefixEnvVar(t *testing.T) {
	require.Equal(t, []string{"AA_DEPLOYER_L2_ETH_RPC"}, PrefixEnvVar("AA_DEPLOYER", "L2_ETH_RPC"))
}

func TestFormatVersion(t *testing.T) {
	require.Equal(t, "v0.0.1", FormatVersion("v0.0.1", "", "", ""))
	require.Equal(t, "v0.0.1-rc", FormatVersion("v0.0.1", "", "", "rc"))
	require.Equal(t, "v0.0.1 (0123abcd 1700000000)", FormatVersion("v0.0.1", "0123abcdef", "1700000000", ""))
}
