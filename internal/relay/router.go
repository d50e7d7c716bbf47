// Package relay routes WebRTC signaling messages between authenticated
// peers connected to this process.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mossy-p/peer-signaling/internal/metrics"
	"github.com/mossy-p/peer-signaling/internal/models"
	"github.com/mossy-p/peer-signaling/internal/registry"
	"github.com/mossy-p/peer-signaling/internal/sdpcache"
)

// DefaultOfferTTL is how long an offer stays in the rendezvous cache.
const DefaultOfferTTL = 60 * time.Second

// Conn is a live connection handle owned by the transport layer.
type Conn = registry.Conn

// IdentityValidator turns a bearer token into the subject email.
type IdentityValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// UserDirectory reports whether an identity is a known user.
type UserDirectory interface {
	Exists(ctx context.Context, email string) (bool, error)
}

type Options struct {
	// OfferTTL defaults to DefaultOfferTTL.
	OfferTTL time.Duration
	// SweepInterval defaults to DefaultSweepInterval.
	SweepInterval time.Duration
	// Metrics defaults to an unregistered set of instruments.
	Metrics *metrics.Relay
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.OfferTTL <= 0 {
		o.OfferTTL = DefaultOfferTTL
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New(nil)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Router validates inbound messages, keeps the registry and offer cache up
// to date and delivers messages to their recipients.
type Router struct {
	registry  *registry.Registry
	cache     *sdpcache.Cache
	validator IdentityValidator
	directory UserDirectory
	metrics   *metrics.Relay
	offerTTL  time.Duration
}

func NewRouter(reg *registry.Registry, cache *sdpcache.Cache, validator IdentityValidator, directory UserDirectory, opts Options) *Router {
	opts = opts.withDefaults()
	return &Router{
		registry:  reg,
		cache:     cache,
		validator: validator,
		directory: directory,
		metrics:   opts.Metrics,
		offerTTL:  opts.OfferTTL,
	}
}

// HandleInbound processes one raw message received on connection connID.
// Failures are answered with an error envelope on the same connection; the
// connection is never closed here.
func (r *Router) HandleInbound(ctx context.Context, connID string, raw []byte) {
	conn, ok := r.registry.Conn(connID)
	if !ok {
		log.Warn().Str("module", "relay").Str("connection", connID).Msg("message on unknown connection")
		return
	}

	defer func() {
		if p := recover(); p != nil {
			r.replyError(conn, internalError(fmt.Errorf("panic: %v", p)))
		}
	}()

	if err := r.handle(ctx, conn, raw); err != nil {
		r.replyError(conn, err)
	}
}

func (r *Router) handle(ctx context.Context, conn Conn, raw []byte) error {
	var msg models.SignalingMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return newError(KindParse, internalErrorMessage, err)
	}

	received := msg.Type
	msg.Type = models.SignalType(strings.ToLower(string(msg.Type)))
	r.metrics.Messages.WithLabelValues(typeLabel(&msg)).Inc()

	token := msg.Token
	if token == "" {
		token = conn.Token()
	}
	if token == "" {
		return newError(KindAuthorizationRequired, "Authorization required", nil)
	}

	switch {
	case msg.Type == models.SignalTypeRegister:
		return r.register(ctx, conn, &msg)
	case msg.IsSignal():
		return r.signal(ctx, conn, &msg, token, raw)
	default:
		return newError(KindUnknownType, "Unknown message type: "+string(received), nil)
	}
}

func (r *Router) register(ctx context.Context, conn Conn, msg *models.SignalingMessage) error {
	if msg.Token == "" || msg.Email == "" {
		return newError(KindAuthentication, "Missing token or email", nil)
	}
	// The message must carry the same token the connection was opened with.
	if msg.Token != conn.Token() {
		return newError(KindAuthentication, "Token mismatch", nil)
	}

	subject, err := r.validator.Validate(ctx, msg.Token)
	if err != nil {
		return newError(KindAuthentication, "Invalid or expired token", err)
	}
	if subject != msg.Email {
		return newError(KindAuthentication, "Token email does not match provided email", nil)
	}
	if err := r.requireUser(ctx, msg.Email, "User not found: "+msg.Email); err != nil {
		return err
	}

	r.registry.Bind(msg.Email, conn.ID())
	log.Info().Str("module", "relay").Str("connection", conn.ID()).Str("email", msg.Email).Msg("registered")

	r.reply(conn, models.Success("Registration successful", models.RegistrationData{
		ConnectionID: conn.ID(),
		Email:        msg.Email,
	}))
	return nil
}

func (r *Router) signal(ctx context.Context, conn Conn, msg *models.SignalingMessage, token string, raw []byte) error {
	subject, err := r.validator.Validate(ctx, token)
	if err != nil {
		return newError(KindAuthentication, "Invalid or expired token", err)
	}
	if subject != msg.From {
		return newError(KindAuthentication, "Token email does not match sender", nil)
	}
	if err := r.requireUser(ctx, msg.From, "User not found"); err != nil {
		return err
	}
	if msg.To != "" {
		if err := r.requireUser(ctx, msg.To, "User not found"); err != nil {
			return err
		}
	}

	r.ensureBinding(subject, conn.ID())

	if msg.Type == models.SignalTypeOffer {
		key := sdpcache.OfferKey(msg.From, msg.To, msg.GroupID)
		r.cache.Put(key, msg.SDP, r.offerTTL)
		r.metrics.Offers.Set(float64(r.cache.Len()))
	}

	if msg.ConversationID == "" {
		log.Warn().Str("module", "relay").Str("from", msg.From).Str("type", string(msg.Type)).Msg("signaling message without conversationId")
	}

	if msg.To == "" {
		r.broadcast(conn.ID(), raw)
		return nil
	}
	return r.deliver(msg.To, raw)
}

// ensureBinding points email at connID if the registry currently has it
// bound elsewhere or not at all, and reports whether it did so. This heals
// senders that reconnected without sending register again.
func (r *Router) ensureBinding(email, connID string) bool {
	if current, ok := r.registry.ConnectionFor(email); ok && current == connID {
		return false
	}
	prev := r.registry.Bind(email, connID)
	log.Info().Str("module", "relay").Str("email", email).Str("previous", prev).Str("connection", connID).Msg("rebound sender")
	return true
}

func (r *Router) requireUser(ctx context.Context, email, notFound string) error {
	ok, err := r.directory.Exists(ctx, email)
	if err != nil {
		return internalError(err)
	}
	if !ok {
		return newError(KindNotFound, notFound, nil)
	}
	return nil
}

// broadcast forwards raw to every other open connection. A failed send to
// one peer does not stop delivery to the rest.
func (r *Router) broadcast(senderID string, raw []byte) {
	for _, peer := range r.registry.Others(senderID) {
		r.forward(peer, raw)
	}
}

func (r *Router) deliver(to string, raw []byte) error {
	notFound := newError(KindRecipientNotFound, "Recipient not found: "+to, nil)

	id, ok := r.registry.ConnectionFor(to)
	if !ok {
		return notFound
	}
	peer, ok := r.registry.Conn(id)
	if !ok || !peer.IsOpen() {
		log.Info().Str("module", "relay").Str("to", to).Str("connection", id).Msg("recipient connection gone")
		return notFound
	}
	r.forward(peer, raw)
	return nil
}

func (r *Router) forward(peer Conn, raw []byte) {
	if r.send(peer, raw) {
		r.metrics.Forwarded.Inc()
	}
}

func (r *Router) reply(conn Conn, resp models.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("marshal reply")
		return
	}
	r.send(conn, data)
}

func (r *Router) replyError(conn Conn, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = internalError(err)
	}
	r.metrics.Errors.WithLabelValues(string(e.Kind)).Inc()

	ev := log.Debug()
	if e.Kind == KindInternal || e.Kind == KindParse {
		ev = log.Error()
	}
	ev.Err(e.Err).Str("module", "relay").Str("connection", conn.ID()).Str("kind", string(e.Kind)).Msg(e.Msg)

	r.reply(conn, models.Failure(e.Msg))
}

func (r *Router) send(conn Conn, data []byte) bool {
	if err := conn.Send(data); err != nil {
		r.metrics.SendFailed.Inc()
		log.Warn().Err(err).Str("module", "relay").Str("connection", conn.ID()).Msg("send failed")
		return false
	}
	return true
}

func typeLabel(msg *models.SignalingMessage) string {
	if msg.Type == models.SignalTypeRegister || msg.IsSignal() {
		return string(msg.Type)
	}
	return "unknown"
}
