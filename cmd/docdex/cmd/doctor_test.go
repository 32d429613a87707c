package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorCmd_HealthyProject(t *testing.T) {
	dir := writeProject(t)

	out, err := runCommand(t, "--dir", dir, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "Docdex System Check")
	assert.Contains(t, out, "[PASS] registry:")
	assert.Contains(t, out, "Status: ready")
}

func TestDoctorCmd_JSON(t *testing.T) {
	dir := writeProject(t)

	out, err := runCommand(t, "--dir", dir, "doctor", "--json")
	require.NoError(t, err)

	var report struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "ready", report.Status)
	require.Len(t, report.Checks, 4)
	assert.Equal(t, "registry", report.Checks[0].Name)
}

func TestDoctorCmd_MissingRegistryFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, err := runCommand(t, "--dir", t.TempDir(), "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "[FAIL] registry:")
}
