package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mossy-p/peer-signaling/internal/metrics"
	"github.com/mossy-p/peer-signaling/internal/models"
	"github.com/mossy-p/peer-signaling/internal/registry"
	"github.com/mossy-p/peer-signaling/internal/sdpcache"
)

var errConnClosed = errors.New("connection closed")

type fakeConn struct {
	id    string
	token string

	mu       sync.Mutex
	closed   bool
	failSend bool
	sent     [][]byte
}

func newFakeConn(id, token string) *fakeConn {
	return &fakeConn{id: id, token: token}
}

func (c *fakeConn) ID() string    { return c.id }
func (c *fakeConn) Token() string { return c.token }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.failSend {
		return errConnClosed
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeConn) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

// lastResponse decodes the most recent frame sent to c as a reply envelope.
func (c *fakeConn) lastResponse(t *testing.T) models.Response {
	t.Helper()
	frames := c.frames()
	require.NotEmpty(t, frames, "no frames sent to %s", c.id)
	var resp models.Response
	require.NoError(t, json.Unmarshal(frames[len(frames)-1], &resp))
	return resp
}

// fakeValidator maps tokens to subjects.
type fakeValidator map[string]string

func (v fakeValidator) Validate(_ context.Context, token string) (string, error) {
	if sub, ok := v[token]; ok {
		return sub, nil
	}
	return "", errors.New("invalid token")
}

type fakeDirectory struct {
	users map[string]bool
	err   error
}

func newFakeDirectory(emails ...string) *fakeDirectory {
	d := &fakeDirectory{users: make(map[string]bool)}
	for _, e := range emails {
		d.users[e] = true
	}
	return d
}

func (d *fakeDirectory) Exists(_ context.Context, email string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.users[email], nil
}

type harness struct {
	now       time.Time
	registry  *registry.Registry
	cache     *sdpcache.Cache
	directory *fakeDirectory
	metrics   *metrics.Relay
	router    *Router
	manager   *Manager
}

const (
	aliceToken  = "tok-alice"
	alice2Token = "tok-alice-2"
	bobToken    = "tok-bob"
	carolToken  = "tok-carol"
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		now:       time.Unix(1_700_000_000, 0),
		registry:  registry.New(),
		directory: newFakeDirectory("alice@x.com", "bob@x.com", "carol@x.com", "nobody@x.com"),
		metrics:   metrics.New(nil),
	}
	h.cache = sdpcache.NewWithClock(func() time.Time { return h.now })
	validator := fakeValidator{
		aliceToken:  "alice@x.com",
		alice2Token: "alice@x.com",
		bobToken:    "bob@x.com",
		carolToken:  "carol@x.com",
	}
	opts := Options{Metrics: h.metrics, Now: func() time.Time { return h.now }}
	h.router = NewRouter(h.registry, h.cache, validator, h.directory, opts)
	h.manager = NewManager(h.registry, h.cache, h.router, opts)
	return h
}

func (h *harness) open(id, token string) *fakeConn {
	c := newFakeConn(id, token)
	h.manager.OnOpen(c)
	return c
}

func (h *harness) send(c *fakeConn, msg any) {
	raw, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	h.manager.OnMessage(context.Background(), c.ID(), raw)
}

// registered opens a connection and registers email on it.
func (h *harness) registered(t *testing.T, id, token, email string) *fakeConn {
	t.Helper()
	c := h.open(id, token)
	h.send(c, map[string]string{"type": "register", "token": token, "email": email})
	resp := c.lastResponse(t)
	require.True(t, resp.Success, "register %s: %s", email, resp.Message)
	return c
}
