package buildinfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrintBuildInfo_DefaultsAndSet(t *testing.T) {
	ov, od, oc := BuildVersion, BuildDate, BuildCommit
	t.Cleanup(func() { BuildVersion, BuildDate, BuildCommit = ov, od, oc })

	BuildVersion, BuildDate, BuildCommit = "", "", ""
	var buf bytes.Buffer
	PrintBuildInfo(&buf)
	require.Equal(t, "Build version: N/A\nBuild date: N/A\nBuild commit: N/A\n", buf.String())

	BuildVersion, BuildDate, BuildCommit = "v1", "2025-09-06", "deadbeef"
	require.Equal(t, Info{Version: "v1", Date: "2025-09-06", Commit: "deadbeef"}, Get())
}
