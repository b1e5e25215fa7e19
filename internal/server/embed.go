package server

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"

	"github.com/and161185/dora-molecule/internal/dora"
	"github.com/and161185/dora-molecule/model"
)

// The embed page plays the host: it frames the widget, waits for
// RENDERER_READY and answers with RENDER_PROPS.
var embedTmpl = template.Must(template.New("embed").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>DORA Metrics: {{.Payload.Service}}</title></head>
<body style="font-family:sans-serif;margin:16px">
<iframe id="dora-frame" src="{{.FrameURL}}" style="width:100%;height:420px;border:0"></iframe>
<script>
(function () {
  var frame = document.getElementById("dora-frame");
  var widgetOrigin = {{.Origin}};
  var payload = {{.Payload}};
  window.addEventListener("message", function (event) {
    if (event.origin !== widgetOrigin || event.source !== frame.contentWindow) {
      return;
    }
    if (event.data && event.data.type === "RENDERER_READY") {
      frame.contentWindow.postMessage({ type: "RENDER_PROPS", props: payload }, widgetOrigin);
    }
  });
})();
</script>
</body>
</html>
`))

var frameTmpl = template.Must(template.New("frame").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body>
<script src="{{.}}"></script>
</body>
</html>
`))

// origin returns the scheme and host of the configured base URL.
func (srv *Server) origin() string {
	u, err := url.Parse(srv.config.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// EmbedHandler serves a demo host page for service that drives the widget
// through the postMessage handshake.
func (srv *Server) EmbedHandler(w http.ResponseWriter, r *http.Request) {
	payload, ok := srv.payload(w, r)
	if !ok {
		return
	}
	origin := srv.origin()

	var buf bytes.Buffer
	err := embedTmpl.Execute(&buf, struct {
		Payload  *model.MetricsPayload
		Origin   string
		FrameURL string
	}{payload, origin, "/frame?origin=" + url.QueryEscape(origin)})
	if err != nil {
		writeError(w, srv.config.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		srv.config.Logger.Errorf("failed to write embed page: %v", err)
	}
}

// FrameHandler serves the blank document the widget script renders into.
// The origin query parameter names the host the widget should trust.
func (srv *Server) FrameHandler(w http.ResponseWriter, r *http.Request) {
	src := dora.WidgetPath
	if origin := r.URL.Query().Get("origin"); origin != "" {
		src += "?origin=" + url.QueryEscape(origin)
	}

	var buf bytes.Buffer
	if err := frameTmpl.Execute(&buf, src); err != nil {
		writeError(w, srv.config.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		srv.config.Logger.Errorf("failed to write frame: %v", err)
	}
}
