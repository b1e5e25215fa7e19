package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/dora-molecule/internal/messaging"
	"github.com/and161185/dora-molecule/model"
)

// State is the lifecycle state of a widget.
type State int

const (
	StateInitializing State = iota
	StateReady
	StateRendering
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateRendering:
		return "rendering"
	}
	return "unknown"
}

// Stats counts what the widget did with incoming messages.
type Stats struct {
	Renders int
	Ignored int
}

// Option configures a Widget.
type Option func(*Widget)

// WithHostOrigin restricts readiness and accepted messages to origin.
func WithHostOrigin(origin string) Option {
	return func(w *Widget) { w.hostOrigin = origin }
}

// WithLogger sets the widget logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(w *Widget) { w.logger = l }
}

// WithDocumentReady marks the document as already loaded, so the widget
// becomes ready during construction.
func WithDocumentReady() Option {
	return func(w *Widget) { w.docReady = true }
}

// WithRenderHook registers fn to be called after every successful render.
func WithRenderHook(fn func(View)) Option {
	return func(w *Widget) { w.onRender = fn }
}

// Widget is the rendering side of the molecule. It owns a subscription on
// its endpoint from construction until Close.
type Widget struct {
	port       *messaging.Endpoint
	sub        *messaging.Subscription
	hostOrigin string
	logger     *zap.SugaredLogger
	docReady   bool
	onRender   func(View)

	readyOnce sync.Once
	closeOnce sync.Once

	mu      sync.Mutex
	state   State
	anchor  bool
	content template.HTML
	view    View
	stats   Stats
}

// New creates a widget bound to port.
func New(port *messaging.Endpoint, opts ...Option) *Widget {
	w := &Widget{port: port, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(w)
	}
	w.sub = port.Subscribe()
	if w.docReady {
		w.DocumentReady()
	}
	return w
}

// DocumentReady performs the one-time initialization: it creates the render
// anchor and announces readiness to the host. Later calls do nothing.
func (w *Widget) DocumentReady() {
	w.readyOnce.Do(func() {
		w.mu.Lock()
		w.anchor = true
		w.state = StateReady
		w.mu.Unlock()

		target := w.hostOrigin
		if target == "" {
			w.logger.Warnw("host origin not configured, announcing readiness to any origin")
			target = messaging.AnyOrigin
		}
		if err := w.port.Post(model.Message{Type: model.MessageRendererReady}, target); err != nil {
			w.logger.Errorw("post renderer ready", "error", err)
		}
	})
}

// Handle processes one incoming message. Anything other than a well-formed
// RENDER_PROPS message from the expected origin is ignored. The widget is
// Rendering while the view is built and Ready again once it is swapped in.
func (w *Widget) Handle(msg model.Message) {
	if msg.Type != model.MessageRenderProps {
		w.ignore("unexpected message type", msg)
		return
	}
	if w.hostOrigin != "" && msg.Origin != w.hostOrigin {
		w.ignore("unexpected origin", msg)
		return
	}
	payload, ok := decodeProps(msg.Props)
	if !ok {
		w.ignore("malformed props", msg)
		return
	}

	w.mu.Lock()
	if !w.anchor {
		w.mu.Unlock()
		w.logger.Debugw("no render anchor, dropping render")
		return
	}
	w.state = StateRendering
	w.mu.Unlock()

	view := Render(payload)
	frag, err := view.HTML()

	w.mu.Lock()
	w.state = StateReady
	if err != nil {
		w.mu.Unlock()
		w.logger.Errorw("render", "error", err)
		return
	}
	w.content = frag
	w.view = view
	w.stats.Renders++
	hook := w.onRender
	w.mu.Unlock()

	if hook != nil {
		hook(view)
	}
}

// Run consumes messages in arrival order until ctx is done or the
// subscription is released.
func (w *Widget) Run(ctx context.Context) error {
	for {
		msg, err := w.sub.Next(ctx)
		if errors.Is(err, messaging.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		w.Handle(msg)
	}
}

// Close releases the widget's subscription.
func (w *Widget) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.sub.Close()
	})
	return err
}

// State returns the current lifecycle state.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Content returns the HTML currently shown in the anchor.
func (w *Widget) Content() template.HTML {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.content
}

// View returns the last rendered view.
func (w *Widget) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

// Stats returns message counters.
func (w *Widget) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Widget) ignore(reason string, msg model.Message) {
	w.mu.Lock()
	w.stats.Ignored++
	w.mu.Unlock()
	w.logger.Debugw("message ignored", "reason", reason, "type", msg.Type, "origin", msg.Origin)
}

// decodeProps decodes RENDER_PROPS leniently. The props must be a JSON
// object; a mistyped field only drops that field or metric sample.
func decodeProps(raw json.RawMessage) (*model.MetricsPayload, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}

	var p model.MetricsPayload
	decodeString(fields["service"], &p.Service)
	if v, ok := fields["period_days"]; ok {
		var days float64
		if json.Unmarshal(v, &days) == nil && days >= 0 && days == float64(int(days)) {
			p.PeriodDays = int(days)
		}
	}
	for _, k := range model.MetricOrder {
		if s, ok := decodeSample(fields[string(k)]); ok {
			p.SetSample(k, s)
		}
	}
	return &p, true
}

// decodeSample requires a numeric value. A unit or rating of the wrong type
// is treated as unrecognized.
func decodeSample(raw json.RawMessage) (*model.MetricSample, bool) {
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil || fields == nil {
		return nil, false
	}
	var s model.MetricSample
	value := bytes.TrimSpace(fields["value"])
	if bytes.Equal(value, []byte("null")) || json.Unmarshal(value, &s.Value) != nil {
		return nil, false
	}
	var unit, rating string
	decodeString(fields["unit"], &unit)
	decodeString(fields["rating"], &rating)
	s.Unit, s.Rating = model.Unit(unit), model.Rating(rating)
	return &s, true
}

func decodeString(raw json.RawMessage, dst *string) {
	var v string
	if len(raw) > 0 && json.Unmarshal(raw, &v) == nil {
		*dst = v
	}
}
