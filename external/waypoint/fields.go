package waypoint

import (
	"math"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/halo-stats/internal/platform/codec"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

var (
	errMissingField = crerr.New("missing field")
	errFieldType    = crerr.New("unexpected field type")
)

// fieldReader walks a decoded payload and remembers the first missing or
// mistyped field. Reads after a failure return zero values, so a flatten
// function can read a whole record and check err once at the end.
type fieldReader struct {
	entity string
	raw    []byte
	path   string
	err    error
}

// node is a JSON object positioned at path inside the payload.
type node struct {
	r    *fieldReader
	path string
	v    map[string]any
}

func decodeObject(entity string, raw []byte) (node, *fieldReader, error) {
	r := &fieldReader{entity: entity, raw: raw}
	var root map[string]any
	if err := sonic.Unmarshal(raw, &root); err != nil {
		return node{}, r, &usecase.NormalizationError{EntityKind: entity, RawPayload: raw, Err: err}
	}
	if root == nil {
		return node{}, r, &usecase.NormalizationError{EntityKind: entity, RawPayload: raw, Err: crerr.Wrap(errFieldType, "payload is not an object")}
	}
	return node{r: r, v: root}, r, nil
}

func (r *fieldReader) fail(path string, err error) {
	if r.err == nil {
		r.path = path
		r.err = err
	}
}

func (r *fieldReader) failed() bool { return r.err != nil }

func (r *fieldReader) result() error {
	if r.err == nil {
		return nil
	}
	return &usecase.NormalizationError{EntityKind: r.entity, Path: r.path, RawPayload: r.raw, Err: r.err}
}

func (n node) child(key string) string {
	if n.path == "" {
		return key
	}
	return n.path + "." + key
}

func (n node) lookup(key string) (any, bool) {
	if n.r.failed() || n.v == nil {
		return nil, false
	}
	v, ok := n.v[key]
	if !ok || v == nil {
		n.r.fail(n.child(key), errMissingField)
		return nil, false
	}
	return v, true
}

func (n node) has(key string) bool {
	if n.v == nil {
		return false
	}
	v, ok := n.v[key]
	return ok && v != nil
}

func (n node) obj(key string) node {
	v, ok := n.lookup(key)
	if !ok {
		return node{r: n.r, path: n.child(key)}
	}
	m, ok := v.(map[string]any)
	if !ok {
		n.r.fail(n.child(key), crerr.Wrapf(errFieldType, "want object, got %T", v))
	}
	return node{r: n.r, path: n.child(key), v: m}
}

// optObj treats a missing key and an explicit null the same way.
func (n node) optObj(key string) (node, bool) {
	if !n.has(key) {
		return node{}, false
	}
	out := n.obj(key)
	return out, out.v != nil
}

func (n node) list(key string) []node {
	v, ok := n.lookup(key)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		n.r.fail(n.child(key), crerr.Wrapf(errFieldType, "want array, got %T", v))
		return nil
	}

	out := make([]node, 0, len(items))
	for i, item := range items {
		path := n.child(key) + "[" + strconv.Itoa(i) + "]"
		m, ok := item.(map[string]any)
		if !ok {
			n.r.fail(path, crerr.Wrapf(errFieldType, "want object, got %T", item))
			return nil
		}
		out = append(out, node{r: n.r, path: path, v: m})
	}
	return out
}

func (n node) ints(key string) []int {
	v, ok := n.lookup(key)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		n.r.fail(n.child(key), crerr.Wrapf(errFieldType, "want array, got %T", v))
		return nil
	}

	out := make([]int, 0, len(items))
	for i, item := range items {
		f, ok := item.(float64)
		if !ok || f != math.Trunc(f) {
			n.r.fail(n.child(key)+"["+strconv.Itoa(i)+"]", crerr.Wrapf(errFieldType, "want integer, got %v", item))
			return nil
		}
		out = append(out, int(f))
	}
	return out
}

func (n node) str(key string) string {
	v, ok := n.lookup(key)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		n.r.fail(n.child(key), crerr.Wrapf(errFieldType, "want string, got %T", v))
	}
	return s
}

func (n node) num(key string) float64 {
	v, ok := n.lookup(key)
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		n.r.fail(n.child(key), crerr.Wrapf(errFieldType, "want number, got %T", v))
	}
	return f
}

func (n node) int64Val(key string) int64 {
	f := n.num(key)
	if f != math.Trunc(f) {
		n.r.fail(n.child(key), crerr.Wrapf(errFieldType, "want integer, got %v", f))
		return 0
	}
	return int64(f)
}

func (n node) intVal(key string) int {
	return int(n.int64Val(key))
}

// optInt returns nil for a missing or null key.
func (n node) optInt(key string) *int {
	if !n.has(key) {
		return nil
	}
	v := n.intVal(key)
	return &v
}

func (n node) boolean(key string) bool {
	v, ok := n.lookup(key)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		n.r.fail(n.child(key), crerr.Wrapf(errFieldType, "want bool, got %T", v))
	}
	return b
}

func (n node) timestamp(key string) time.Time {
	s := n.str(key)
	if n.r.failed() {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		n.r.fail(n.child(key), err)
		return time.Time{}
	}
	return t
}

func (n node) optTimestamp(key string) *time.Time {
	if !n.has(key) {
		return nil
	}
	t := n.timestamp(key)
	return &t
}

// seconds reads an ISO-8601 duration.
func (n node) seconds(key string) float64 {
	s := n.str(key)
	if n.r.failed() {
		return 0
	}
	out, err := codec.ParseDuration(s)
	if err != nil {
		n.r.fail(n.child(key), err)
		return 0
	}
	return out
}
