package static

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWidget(t *testing.T) {
	a, err := Widget()
	require.NoError(t, err)
	require.Equal(t, WidgetFile, a.Name)
	require.True(t, strings.HasPrefix(a.ContentType, "application/javascript"))
	require.NotEmpty(t, a.Body)
	require.Len(t, a.ETag, 18)

	body := string(a.Body)
	for _, want := range []string{"RENDERER_READY", "RENDER_PROPS", "deployment_frequency", "change_failure_rate", "repeat(2, 1fr)"} {
		require.Contains(t, body, want)
	}

	require.Regexp(t, `if \(document\.readyState === "loading"\) \{\s+document\.addEventListener\("DOMContentLoaded"`, body)
	require.Regexp(t, `\} else \{\s+widget\.documentReady\(\);`, body)
	require.Regexp(t, `if \(this\.state !== "initializing"\) \{\s+return;`, body)

	// A render swaps the anchor content and settles back to ready.
	swap := strings.Index(body, "this.root.replaceChildren(fragment);")
	require.Positive(t, swap)
	rest := body[swap:]
	end := strings.Index(rest, "};")
	require.Positive(t, end)
	require.Contains(t, rest[:end], `this.state = "ready";`)
	require.NotContains(t, rest[:end], `this.state = "rendering"`)

	again, err := Widget()
	require.NoError(t, err)
	require.Equal(t, a.ETag, again.ETag)
}
