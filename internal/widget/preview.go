package widget

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/dora-molecule/internal/messaging"
	"github.com/and161185/dora-molecule/model"
)

const previewOrigin = "about:preview"

// Preview drives a fresh widget through the full handshake: it waits for
// RENDERER_READY, sends payload as RENDER_PROPS and returns the rendered view.
func Preview(ctx context.Context, payload *model.MetricsPayload, logger *zap.SugaredLogger) (View, error) {
	if err := ctx.Err(); err != nil {
		return View{}, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	props, err := json.Marshal(payload)
	if err != nil {
		return View{}, fmt.Errorf("marshal props: %w", err)
	}

	host, port := messaging.NewChannel(previewOrigin, previewOrigin)
	inbox := host.Subscribe()
	defer inbox.Close()

	rendered := make(chan View, 1)
	w := New(port,
		WithHostOrigin(previewOrigin),
		WithLogger(logger),
		WithRenderHook(func(v View) {
			select {
			case rendered <- v:
			default:
			}
		}),
	)
	defer w.Close()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(runCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	w.DocumentReady()

	msg, err := inbox.Next(ctx)
	if err != nil {
		return View{}, err
	}
	if msg.Type != model.MessageRendererReady {
		return View{}, fmt.Errorf("unexpected message %q before readiness", msg.Type)
	}

	if err := host.Post(model.Message{Type: model.MessageRenderProps, Props: props}, previewOrigin); err != nil {
		return View{}, fmt.Errorf("post props: %w", err)
	}

	select {
	case v := <-rendered:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}
