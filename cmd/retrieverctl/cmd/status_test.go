package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCmd_ReportsNotReadyBeforeBuild(t *testing.T) {
	withIsolatedDataDirs(t)

	cmd := newStatusCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetContext(t.Context())

	err := runStatus(cmd, false, false, 0)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "not_ready")
}

func TestStatusCmd_ReportsReadyAfterBuild(t *testing.T) {
	_, metadataPath := withIsolatedDataDirs(t)
	seedMetadataDB(t, metadataPath)

	build := newBuildCmd()
	build.SetOut(&bytes.Buffer{})
	build.SetContext(t.Context())
	require.NoError(t, build.RunE(build, nil))

	cmd := newStatusCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetContext(t.Context())

	err := runStatus(cmd, true, false, 0)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"bm25_ready": true`)
}
