package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing_ReportsEveryPlatform(t *testing.T) {
	rt := installRuntime(t)

	err := ping(context.Background(), rt.runtime, time.Second)
	require.Error(t, err)
	assert.Equal(t, "1 of 2 platforms unreachable", err.Error())

	out := rt.out.String()
	assert.Contains(t, out, "qidian     ok")
	assert.Contains(t, out, "sfacg      FAIL  connection refused")
}

func TestPingCmd_AllHealthy(t *testing.T) {
	rt := installRuntime(t)
	rt.sfacg.PingErr = nil

	require.NoError(t, (&PingCmd{Timeout: time.Second}).Run())
	assert.NotContains(t, rt.out.String(), "FAIL")
}
