// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

// Package rpcserver implements §4.4's RPC Surface: a JSON-RPC dispatcher
// exposing chan_-prefixed methods over HTTP, with request payloads
// validated against a schema before ever reaching the Engine, mirroring
// the way lnrpc's gRPC-gateway sits in front of dcrlnd's wallet/channel
// subsystems.
package rpcserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/macaroon.v2"

	"github.com/vectorlabs/vectord/engine"
	"github.com/vectorlabs/vectord/forward"
	vlog "github.com/vectorlabs/vectord/log"
	"github.com/vectorlabs/vectord/transfer"
	"github.com/vectorlabs/vectord/vectorerr"
)

var log = vlog.Logger(vlog.SubsystemRPC)

// handlerFunc is one chan_ method's implementation: decode params (already
// schema-validated), call the Engine/Builder/Forwarder, return a JSON
// value to serialize as the envelope's "result".
type handlerFunc func(ctx context.Context, raw json.RawMessage) (interface{}, error)

// method pairs a handler with its read-only/mutating classification
// (§4.4 step 2) and optional request schema.
type method struct {
	handler  handlerFunc
	schema   *gojsonschema.Schema
	mutating bool
}

// Server is the chan_ JSON-RPC dispatcher. One Server instance wraps one
// Engine/Builder/Forwarder triple; HTTP transport is a thin ServeHTTP on
// top of Dispatch, so the same dispatcher can be driven directly by tests
// without a listening socket.
type Server struct {
	Engine    *engine.Engine
	Builder   *transfer.Builder
	Forwarder *forward.Forwarder
	Auth      *Authenticator

	mu      sync.RWMutex
	methods map[string]method
}

// New constructs a Server and registers the default chan_ method set.
func New(eng *engine.Engine, builder *transfer.Builder, fwd *forward.Forwarder, auth *Authenticator) *Server {
	s := &Server{
		Engine:    eng,
		Builder:   builder,
		Forwarder: fwd,
		Auth:      auth,
		methods:   make(map[string]method),
	}
	s.registerDefaultMethods()
	return s
}

func (s *Server) register(name string, mutating bool, schemaJSON string, h handlerFunc) {
	var compiled *gojsonschema.Schema
	if schemaJSON != "" {
		loader := gojsonschema.NewStringLoader(schemaJSON)
		schema, err := gojsonschema.NewSchema(loader)
		if err != nil {
			// A malformed built-in schema is a programmer error caught at
			// registration time, not a runtime condition.
			panic("rpcserver: invalid schema for " + name + ": " + err.Error())
		}
		compiled = schema
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[name] = method{handler: h, schema: compiled, mutating: mutating}
}

// envelope is the tagged ok/fail response shape of §4.4: "errors are
// serialized as {message, context}".
type envelope struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *errorBody      `json:"error,omitempty"`
}

type errorBody struct {
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Dispatch runs one JSON-RPC call: validates params against the method's
// schema, checks the macaroon capability for mutating methods, then
// invokes the handler. Read-only methods bypass both the macaroon check
// and the Engine's per-channel lock (they only read through Store).
func (s *Server) Dispatch(ctx context.Context, methodName string, params json.RawMessage, ms macaroon.Slice) envelope {
	s.mu.RLock()
	m, ok := s.methods[methodName]
	s.mu.RUnlock()
	if !ok {
		return failEnvelope(vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{"method": methodName}))
	}

	if m.schema != nil {
		result, err := m.schema.Validate(gojsonschema.NewBytesLoader(params))
		if err != nil {
			return failEnvelope(vectorerr.Wrap(err, map[string]interface{}{"method": methodName}))
		}
		if !result.Valid() {
			errs := make([]string, 0, len(result.Errors()))
			for _, e := range result.Errors() {
				errs = append(errs, e.String())
			}
			return failEnvelope(vectorerr.New(vectorerr.KindValidation, nil, map[string]interface{}{
				"method": methodName,
				"errors": errs,
			}))
		}
	}

	if m.mutating && s.Auth != nil {
		if err := s.Auth.Authorize(ctx, methodName, ms); err != nil {
			return failEnvelope(vectorerr.New(vectorerr.KindValidation, err, map[string]interface{}{"method": methodName}))
		}
	}

	out, err := m.handler(ctx, params)
	if err != nil {
		log.Errorf("%s failed: %v", methodName, err)
		return failEnvelope(err)
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return failEnvelope(vectorerr.Wrap(err, map[string]interface{}{"method": methodName}))
	}
	return envelope{Status: "ok", Result: raw}
}

func failEnvelope(err error) envelope {
	ctx := vectorerr.ContextOf(err)
	return envelope{Status: "fail", Error: &errorBody{Message: err.Error(), Context: ctx}}
}

// ServeHTTP implements a minimal JSON-RPC-over-HTTP transport: POST body
// is {"method":"chan_...", "params": {...}}, the Authorization header
// carries a base64 macaroon the way dcrlnd's REST gateway does.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, failEnvelope(vectorerr.Wrap(err, nil)))
		return
	}
	ms := macaroonFromHeader(r.Header.Get("Authorization"))
	writeJSON(w, s.Dispatch(r.Context(), req.Method, req.Params, ms))
}

func writeJSON(w http.ResponseWriter, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(env)
}

// macaroonFromHeader decodes a base64-encoded macaroon.Slice from an
// Authorization header, returning nil (not an error) if absent or
// malformed; Dispatch's own Authorize call surfaces the resulting
// permission failure.
func macaroonFromHeader(header string) macaroon.Slice {
	if header == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil
	}
	var ms macaroon.Slice
	if err := ms.UnmarshalBinary(raw); err != nil {
		return nil
	}
	return ms
}
