//go:build unix

package kram

import (
	"context"
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommand_OwnProcessGroup(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	cmd := newCommand(context.Background(), "sh", []string{"-c", "sleep 0.2"})
	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Setpgid)

	require.NoError(t, cmd.Start())
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, cmd.Process.Pid, pgid, "child leads its own group")
	assert.NotEqual(t, syscall.Getpgrp(), pgid)
	require.NoError(t, cmd.Wait())
}
