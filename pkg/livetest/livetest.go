// Package livetest drives LiveView components in unit tests without a
// browser or a WebSocket connection.
package livetest

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/vendapay/teamwizard/pkg/core"
)

// LiveViewTest is a mounted component plus the HTML of its last render.
type LiveViewTest struct {
	t         testing.TB
	ctx       context.Context
	component core.Component
	socket    *core.Socket
	transport *MockTransport
	params    core.Params
	session   core.Session
	rendered  string
	events    []string
}

// MountOption configures Mount.
type MountOption func(*LiveViewTest)

// WithParams sets the mount parameters.
func WithParams(params core.Params) MountOption {
	return func(lvt *LiveViewTest) {
		lvt.params = params
	}
}

// WithSession sets the mount session.
func WithSession(session core.Session) MountOption {
	return func(lvt *LiveViewTest) {
		lvt.session = session
	}
}

// WithContext sets the base context passed to the component.
func WithContext(ctx context.Context) MountOption {
	return func(lvt *LiveViewTest) {
		lvt.ctx = ctx
	}
}

// Mount connects comp to a mock socket, mounts and renders it. The
// component is terminated when the test ends.
func Mount(t testing.TB, comp core.Component, opts ...MountOption) *LiveViewTest {
	t.Helper()

	lvt := &LiveViewTest{
		t:         t,
		ctx:       context.Background(),
		component: comp,
		transport: NewMockTransport(),
		params:    core.Params{},
		session:   core.Session{},
	}
	for _, opt := range opts {
		opt(lvt)
	}

	lvt.socket = core.NewSocket("test-"+uuid.NewString()[:8], lvt.transport)
	if setter, ok := comp.(interface{ SetSocket(*core.Socket) }); ok {
		setter.SetSocket(lvt.socket)
	}
	lvt.ctx = core.BuildContext(lvt.ctx, lvt.socket, lvt.session, lvt.params)

	if err := comp.Mount(lvt.ctx, lvt.params, lvt.session); err != nil {
		t.Fatalf("mount %s: %v", comp.Name(), err)
	}
	lvt.render()

	t.Cleanup(func() {
		comp.Terminate(context.Background(), core.TerminateNormal)
	})
	return lvt
}

// Event sends a user event and re-renders. A handler error fails the test.
func (lvt *LiveViewTest) Event(name string, payload map[string]any) *LiveViewTest {
	lvt.t.Helper()
	if err := lvt.EventErr(name, payload); err != nil {
		lvt.t.Errorf("event %q: %v", name, err)
	}
	return lvt
}

// EventErr sends a user event and returns the handler error. The
// component is re-rendered only when the handler succeeds.
func (lvt *LiveViewTest) EventErr(name string, payload map[string]any) error {
	lvt.t.Helper()
	if payload == nil {
		payload = map[string]any{}
	}
	lvt.events = append(lvt.events, name)

	if err := lvt.component.HandleEvent(lvt.ctx, name, payload); err != nil {
		return err
	}
	lvt.render()
	return nil
}

// Values is shorthand for a payload of string pairs: Values("field",
// "email", "value", "a@b.c").
func Values(kv ...string) map[string]any {
	if len(kv)%2 != 0 {
		panic("livetest: Values needs key/value pairs")
	}
	out := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func (lvt *LiveViewTest) render() {
	lvt.t.Helper()
	renderer := lvt.component.Render(lvt.ctx)
	if renderer == nil {
		lvt.t.Fatalf("%s returned a nil renderer", lvt.component.Name())
	}

	var buf bytes.Buffer
	if err := renderer.Render(lvt.ctx, &buf); err != nil {
		lvt.t.Fatalf("render %s: %v", lvt.component.Name(), err)
	}
	lvt.rendered = buf.String()
}

// Rendered returns the HTML of the last render.
func (lvt *LiveViewTest) Rendered() string {
	return lvt.rendered
}

// AssertText checks that the rendered HTML contains text.
func (lvt *LiveViewTest) AssertText(text string) *LiveViewTest {
	lvt.t.Helper()
	assert.Contains(lvt.t, lvt.rendered, text)
	return lvt
}

// AssertNoText checks that the rendered HTML does not contain text.
func (lvt *LiveViewTest) AssertNoText(text string) *LiveViewTest {
	lvt.t.Helper()
	assert.NotContains(lvt.t, lvt.rendered, text)
	return lvt
}

// AssertElement checks that an element with the given id exists and that
// its opening tag contains every attr fragment, e.g.
// AssertElement("nextBtn", " hidden").
func (lvt *LiveViewTest) AssertElement(id string, attrs ...string) *LiveViewTest {
	lvt.t.Helper()
	tag, ok := openingTag(lvt.rendered, id)
	if !assert.True(lvt.t, ok, "element #%s not found", id) {
		return lvt
	}
	for _, attr := range attrs {
		assert.Contains(lvt.t, tag, attr, "element #%s", id)
	}
	return lvt
}

// Tag returns the opening tag of the element with the given id, or "".
func (lvt *LiveViewTest) Tag(id string) string {
	tag, _ := openingTag(lvt.rendered, id)
	return tag
}

// AssertNoElement checks that no element has the given id.
func (lvt *LiveViewTest) AssertNoElement(id string) *LiveViewTest {
	lvt.t.Helper()
	_, ok := openingTag(lvt.rendered, id)
	assert.False(lvt.t, ok, "element #%s should not exist", id)
	return lvt
}

// AssertClass checks that the element with the given id carries class.
func (lvt *LiveViewTest) AssertClass(id, class string) *LiveViewTest {
	lvt.t.Helper()
	assert.True(lvt.t, HasClass(lvt.rendered, id, class), "element #%s should have class %q", id, class)
	return lvt
}

// AssertNoClass checks that the element with the given id lacks class.
func (lvt *LiveViewTest) AssertNoClass(id, class string) *LiveViewTest {
	lvt.t.Helper()
	assert.False(lvt.t, HasClass(lvt.rendered, id, class), "element #%s should not have class %q", id, class)
	return lvt
}

// AssertAssign checks an assign of components exposing Assigns().
func (lvt *LiveViewTest) AssertAssign(key string, expected any) *LiveViewTest {
	lvt.t.Helper()
	getter, ok := lvt.component.(interface{ Assigns() *core.Assigns })
	if !assert.True(lvt.t, ok, "%s does not expose assigns", lvt.component.Name()) {
		return lvt
	}
	assert.Equal(lvt.t, expected, getter.Assigns().Get(key), "assign %q", key)
	return lvt
}

// AssertPushed checks that the component pushed event through its socket.
func (lvt *LiveViewTest) AssertPushed(event string) *LiveViewTest {
	lvt.t.Helper()
	assert.Contains(lvt.t, lvt.transport.SentEvents(), event)
	return lvt
}

// Component returns the component under test.
func (lvt *LiveViewTest) Component() core.Component {
	return lvt.component
}

// Socket returns the socket given to the component.
func (lvt *LiveViewTest) Socket() *core.Socket {
	return lvt.socket
}

// Transport returns the mock transport behind Socket.
func (lvt *LiveViewTest) Transport() *MockTransport {
	return lvt.transport
}

// Events returns the names of the events sent so far.
func (lvt *LiveViewTest) Events() []string {
	return lvt.events
}

// HasClass reports whether the element with the given id carries class.
func HasClass(html, id, class string) bool {
	tag, ok := openingTag(html, id)
	if !ok {
		return false
	}
	m := classAttr.FindStringSubmatch(tag)
	if m == nil {
		return false
	}
	for _, c := range strings.Fields(m[1]) {
		if c == class {
			return true
		}
	}
	return false
}

var classAttr = regexp.MustCompile(`\bclass="([^"]*)"`)

// openingTag returns the opening tag of the element with the given id.
func openingTag(html, id string) (string, bool) {
	idx := strings.Index(html, fmt.Sprintf(` id="%s"`, id))
	if idx < 0 {
		return "", false
	}
	start := strings.LastIndexByte(html[:idx], '<')
	end := strings.IndexByte(html[idx:], '>')
	if start < 0 || end < 0 {
		return "", false
	}
	return html[start : idx+end+1], true
}
