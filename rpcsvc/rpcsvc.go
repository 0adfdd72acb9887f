// Package rpcsvc implements the service and derivation contract: given an
// arbitrary Go value, Derive builds the Request/Response envelope pair and
// method table a code-generation macro would otherwise emit (spec §1
// explicitly excludes macro mechanics; this is the reflection-based
// equivalent of the contract), and Client dials that table by name.
package rpcsvc

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bkfox/rpccaps-go/codec"
)

// MaxMethods is the derivation ceiling: a method table must fit in one bit
// per method of a capability.Capability mask (spec §4.8).
const MaxMethods = 64

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Meta is a free-form service metadata entry (name, version, description).
type Meta struct {
	Key   string
	Value string
}

// Request is the wire envelope for one call: a method index plus one
// msgpack-encoded blob per argument.
type Request struct {
	Method int
	Args   [][]byte
}

// Response is the wire envelope for one call's outcome: either a single
// msgpack-encoded return value, or a non-empty Err on failure.
type Response struct {
	Method int
	Result []byte
	Err    string
}

// Service is what a derived service exposes to dispatch/transport: a
// liveness check, metadata, single-call dispatch, and a blocking serve
// loop (spec §4.6).
type Service interface {
	IsAlive() bool
	Metas() []Meta
	Dispatch(req Request) Response
	Serve(in *codec.Framed[Request], out *codec.Framed[Response]) error
	MethodNames() []string
}

type derived struct {
	value   reflect.Value
	methods []reflect.Method
	names   []string
	metas   []Meta
	alive   func() bool
}

// Derive builds a Service around impl by reflecting over its exported
// method set; each method becomes one dispatchable entry, indexed from 0 in
// the order reflect.Type.Method reports them (sorted by name), with IsAlive
// and Metas skipped. impl may optionally
// implement IsAlive() bool and Metas() []Meta; absent either, IsAlive
// always reports true and Metas is empty.
//
// Derive panics if impl exposes more than MaxMethods dispatchable methods,
// since the resulting table could never be addressed by a single
// capability.Capability share mask.
func Derive(impl any) Service {
	v := reflect.ValueOf(impl)
	t := v.Type()

	var methods []reflect.Method
	var names []string
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if m.Name == "IsAlive" || m.Name == "Metas" {
			continue
		}
		names = append(names, m.Name)
		methods = append(methods, m)
	}
	if len(methods) > MaxMethods {
		panic(fmt.Sprintf("rpcsvc: %s exposes %d methods, exceeding the %d-method ceiling", t, len(methods), MaxMethods))
	}

	d := &derived{value: v, methods: methods, names: names}
	if a, ok := impl.(interface{ IsAlive() bool }); ok {
		d.alive = a.IsAlive
	} else {
		d.alive = func() bool { return true }
	}
	if m, ok := impl.(interface{ Metas() []Meta }); ok {
		d.metas = m.Metas()
	}
	return d
}

func (d *derived) IsAlive() bool         { return d.alive() }
func (d *derived) Metas() []Meta         { return d.metas }
func (d *derived) MethodNames() []string { return d.names }

// Dispatch decodes req.Args against the target method's parameter types,
// invokes it, and encodes its return values. A method may return
// (T, error), just error, just T, or nothing; the last error-typed return
// value (if any) becomes Response.Err and is never itself msgpack-encoded.
func (d *derived) Dispatch(req Request) Response {
	if req.Method < 0 || req.Method >= len(d.methods) {
		return Response{Method: req.Method, Err: fmt.Sprintf("rpcsvc: unknown method index %d", req.Method)}
	}
	method := d.methods[req.Method]
	mt := method.Func.Type()

	numIn := mt.NumIn() - 1 // skip receiver
	if len(req.Args) != numIn {
		return Response{Method: req.Method, Err: fmt.Sprintf("rpcsvc: %s expects %d args, got %d", method.Name, numIn, len(req.Args))}
	}

	in := make([]reflect.Value, mt.NumIn())
	in[0] = d.value
	for i := 0; i < numIn; i++ {
		argPtr := reflect.New(mt.In(i + 1))
		if err := msgpack.Unmarshal(req.Args[i], argPtr.Interface()); err != nil {
			return Response{Method: req.Method, Err: fmt.Sprintf("rpcsvc: decoding arg %d: %v", i, err)}
		}
		in[i+1] = argPtr.Elem()
	}

	out := method.Func.Call(in)
	return buildResponse(req.Method, out)
}

func buildResponse(methodIdx int, out []reflect.Value) Response {
	if len(out) == 0 {
		return Response{Method: methodIdx}
	}

	last := out[len(out)-1]
	if last.Type() == errType {
		if !last.IsNil() {
			return Response{Method: methodIdx, Err: last.Interface().(error).Error()}
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return Response{Method: methodIdx}
	}

	result, err := msgpack.Marshal(out[0].Interface())
	if err != nil {
		return Response{Method: methodIdx, Err: fmt.Sprintf("rpcsvc: encoding result: %v", err)}
	}
	return Response{Method: methodIdx, Result: result}
}

// Serve runs the request/response loop (spec §4.6): reads Requests off in,
// dispatches, writes Responses to out, until IsAlive reports false or
// either side of the stream ends.
func (d *derived) Serve(in *codec.Framed[Request], out *codec.Framed[Response]) error {
	for d.IsAlive() {
		req, err := in.Recv()
		if err != nil {
			return err
		}
		if err := out.Send(d.Dispatch(req)); err != nil {
			return err
		}
	}
	return nil
}

// Client calls a derived Service's methods by name over a framed
// Request/Response connection, the contract a generated client would
// otherwise expose.
type Client struct {
	byName map[string]int
	in     *codec.Framed[Request]
	out    *codec.Framed[Response]
}

// NewClient builds a Client against a service whose method table was
// derived with methodNames in index order — the order Derive assigns
// indices in on the server side (Service.MethodNames()).
func NewClient(methodNames []string, in *codec.Framed[Request], out *codec.Framed[Response]) *Client {
	byName := make(map[string]int, len(methodNames))
	for i, name := range methodNames {
		byName[name] = i
	}
	return &Client{byName: byName, in: in, out: out}
}

// call marshals args, sends a Request for name, and returns the raw
// msgpack-encoded result bytes (nil if the method returned no value).
func (c *Client) call(name string, args []any) ([]byte, error) {
	idx, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("rpcsvc: unknown method %q", name)
	}

	encodedArgs := make([][]byte, len(args))
	for i, a := range args {
		b, err := msgpack.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("rpcsvc: encoding arg %d: %w", i, err)
		}
		encodedArgs[i] = b
	}

	if err := c.in.Send(Request{Method: idx, Args: encodedArgs}); err != nil {
		return nil, err
	}
	resp, err := c.out.Recv()
	if err != nil {
		return nil, err
	}
	if resp.Err != "" {
		return nil, errors.New(resp.Err)
	}
	return resp.Result, nil
}

// Call invokes name with args and decodes its result into a generic any
// (map/slice/scalar per msgpack's default decoding), for callers that
// don't need a concrete result type.
func (c *Client) Call(name string, args ...any) (any, error) {
	raw, err := c.call(name, args)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var result any
	if err := msgpack.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("rpcsvc: decoding result: %w", err)
	}
	return result, nil
}

// CallTyped invokes name with args and decodes its result as Resp,
// avoiding a type assertion at the call site.
func CallTyped[Resp any](c *Client, name string, args ...any) (Resp, error) {
	var zero Resp
	raw, err := c.call(name, args)
	if err != nil {
		return zero, err
	}
	if len(raw) == 0 {
		return zero, nil
	}
	var result Resp
	if err := msgpack.Unmarshal(raw, &result); err != nil {
		return zero, fmt.Errorf("rpcsvc: decoding result: %w", err)
	}
	return result, nil
}
