package socketio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/vk/cmdgrid/internal/param"
	"github.com/vk/cmdgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Parameter names read by OnRunSocketIOEmit.
const (
	ParamURL       = "socketio_url"
	ParamEvent     = "socketio_event"
	ParamPayload   = "socketio_payload"
	ParamNamespace = "socketio_namespace"
	ParamTimeout   = "socketio_timeout"
)

const defaultTimeout = 10 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input is the handler's view of its parameters.
type Input struct {
	URL       string
	Event     string
	Payload   any
	Namespace string
	Timeout   time.Duration
}

// inputFromValues reads the handler parameters from the value store.
func inputFromValues(values *param.Store) (*Input, error) {
	in := &Input{Namespace: "/", Timeout: defaultTimeout}

	str := func(name string) string {
		v, ok := values.Get(name)
		if !ok || !v.Type().Equals(cty.String) {
			return ""
		}
		return v.AsString()
	}

	in.URL = str(ParamURL)
	if in.URL == "" {
		return nil, fmt.Errorf("parameter '%s' must be set", ParamURL)
	}
	in.Event = str(ParamEvent)
	if in.Event == "" {
		return nil, fmt.Errorf("parameter '%s' must be set", ParamEvent)
	}
	if ns := str(ParamNamespace); ns != "" {
		in.Namespace = ns
	}
	if raw := str(ParamTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parameter '%s': %w", ParamTimeout, err)
		}
		in.Timeout = d
	}

	if v, ok := values.Get(ParamPayload); ok {
		// Round-trip through JSON so the client library sees plain Go values.
		raw, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return nil, fmt.Errorf("parameter '%s': %w", ParamPayload, err)
		}
		if err := json.Unmarshal(raw, &in.Payload); err != nil {
			return nil, fmt.Errorf("parameter '%s': %w", ParamPayload, err)
		}
	}
	return in, nil
}

// OnRunSocketIOEmit connects to a Socket.IO server and emits a single event.
func OnRunSocketIOEmit(ctx context.Context, rt *registry.Runtime) error {
	input, err := inputFromValues(rt.Values)
	if err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx).With("handler", "socketio", "url", input.URL, "event", input.Event)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	parsedURL, err := url.Parse(input.URL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, input.Timeout)
	defer cancel()

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(input.Namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	var connected atomic.Bool
	done := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		connected.Store(true)
		logger.Info("Successfully connected", "namespace", input.Namespace, "sid", io.Id())
		var args []any
		if input.Payload != nil {
			args = append(args, input.Payload)
		}
		select {
		case done <- io.Emit(input.Event, args...):
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connection failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = fmt.Errorf("connection failed: %w", e)
			}
		}
		select {
		case done <- err:
		default:
		}
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if connected.Load() {
			return fmt.Errorf("timed out after connecting while emitting '%s'", input.Event)
		}
		return fmt.Errorf("timed out while waiting for initial connection")
	case err := <-done:
		if err != nil {
			return err
		}
		logger.Info("Event emitted", "event", input.Event)
		return nil
	}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunSocketIOEmit", &registry.RegisteredHandler{
		Fn: OnRunSocketIOEmit,
		Params: map[string]cty.Type{
			ParamURL:       cty.String,
			ParamEvent:     cty.String,
			ParamPayload:   cty.DynamicPseudoType,
			ParamNamespace: cty.String,
			ParamTimeout:   cty.String,
		},
	})
}
