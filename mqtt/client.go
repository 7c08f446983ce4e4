// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package mqtt provides a minimal MQTT v5 client for the pedometer daemon. It
// holds a single connection (no session resumption or reconnection) and
// dispatches incoming messages to subscription handlers by topic filter.
package mqtt

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/Azure/iot-operations-sdks/go/pedometer/errors"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/container"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/log"
	"github.com/Azure/iot-operations-sdks/go/pedometer/internal/wallclock"
	"github.com/eclipse/paho.golang/paho"
)

type (
	// Client is a single-connection MQTT v5 client.
	Client struct {
		provider ConnectionProvider
		options  ClientOptions
		clientID string

		mu   sync.Mutex
		pc   *paho.Client
		lost chan struct{}

		// Handler context; cancelled on disconnect.
		ctx    context.Context
		cancel context.CancelFunc

		subs container.List[*subscription]
		log  logger
	}

	// Message represents a received message.
	Message struct {
		Topic   string
		Payload []byte
		PublishOptions
	}

	// MessageHandler handles messages received on a subscribed topic. Each
	// message is handled on its own goroutine.
	MessageHandler = func(context.Context, *Message)

	subscription struct {
		filter  string
		handler MessageHandler
	}
)

// ClientIDs must be between 1 and 23 alphanumeric characters.
const maxClientIDLength = 23

var clientIDCharacters = []byte(
	"0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ",
)

// RandomClientID generates a random valid MQTT client ID.
func RandomClientID() string {
	// #nosec G404
	r := rand.New(rand.NewSource(wallclock.Instance.Now().UnixNano()))

	id := make([]byte, maxClientIDLength)
	for i := range id {
		id[i] = clientIDCharacters[r.Intn(len(clientIDCharacters))]
	}
	return string(id)
}

// NewClient creates a client that dials the server with the given connection
// provider when Connect is called.
func NewClient(provider ConnectionProvider, opts ...ClientOption) *Client {
	c := &Client{provider: provider}
	c.options.Apply(opts)

	c.clientID = c.options.ClientID
	if c.clientID == "" {
		c.clientID = RandomClientID()
	}

	c.log = logger{log.Wrap(c.options.Logger).With("client_id", c.clientID)}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// ID returns the MQTT client ID.
func (c *Client) ID() string {
	return c.clientID
}

// Connect opens the connection to the MQTT server.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pc != nil {
		return &errors.Error{
			Message:      "MQTT client already connected",
			Kind:         errors.StateInvalid,
			PropertyName: "connected",
		}
	}
	if c.ctx.Err() != nil {
		return &errors.Error{
			Message:      "MQTT client already disconnected",
			Kind:         errors.StateInvalid,
			PropertyName: "disconnected",
		}
	}

	conn, err := c.provider(ctx)
	if err != nil {
		return errors.Normalize(err, "MQTT dial")
	}

	lost := make(chan struct{})
	var once sync.Once
	markLost := func() { once.Do(func() { close(lost) }) }

	pc := paho.NewClient(paho.ClientConfig{
		ClientID: c.clientID,
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			c.onPublishReceived,
		},
		OnClientError: func(err error) {
			c.log.Err(c.ctx, errors.Normalize(err, "MQTT client"))
			markLost()
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			c.log.Packet(c.ctx, "server disconnect", d)
			markLost()
		},
	})

	keepAlive := c.options.KeepAlive.Seconds()
	packet := &paho.Connect{
		ClientID:     c.clientID,
		CleanStart:   true,
		KeepAlive:    uint16(min(keepAlive, math.MaxUint16)),
		Username:     c.options.Username,
		UsernameFlag: c.options.Username != "",
		Password:     c.options.Password,
		PasswordFlag: c.options.Password != nil,
	}

	c.log.Packet(ctx, "connect", packet)
	connack, err := pc.Connect(ctx, packet)
	c.log.Packet(ctx, "connack", connack)
	if err := connackErr.Translate(ctx, connack, err); err != nil {
		_ = conn.Close()
		return err
	}

	c.pc = pc
	c.lost = lost
	c.log.Info(ctx, "MQTT connected")
	return nil
}

// Lost returns a channel that is closed when the connection drops for any
// reason other than Disconnect. It is nil before Connect succeeds.
func (c *Client) Lost() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lost
}

// Disconnect closes the connection. The client cannot be reconnected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancel()
	if c.pc == nil {
		return nil
	}

	packet := &paho.Disconnect{ReasonCode: 0}
	c.log.Packet(context.Background(), "disconnect", packet)
	err := c.pc.Disconnect(packet)
	c.pc = nil
	return errors.Normalize(err, "MQTT disconnect")
}

// Publish sends a message. QoS 0 and 1 are supported.
func (c *Client) Publish(
	ctx context.Context,
	topic string,
	payload []byte,
	opts ...PublishOption,
) error {
	pc, err := c.client()
	if err != nil {
		return err
	}

	var opt PublishOptions
	opt.Apply(opts)

	if opt.QoS >= 2 {
		return &errors.Error{
			Message:       "unsupported QoS",
			Kind:          errors.InvalidInput,
			PropertyName:  "QoS",
			PropertyValue: opt.QoS,
		}
	}
	if !IsValidTopic(topic) {
		return &errors.Error{
			Message:       "invalid topic",
			Kind:          errors.InvalidInput,
			PropertyName:  "topic",
			PropertyValue: topic,
		}
	}

	packet := &paho.Publish{
		QoS:     opt.QoS,
		Retain:  opt.Retain,
		Topic:   topic,
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType:     opt.ContentType,
			CorrelationData: opt.CorrelationData,
			ResponseTopic:   opt.ResponseTopic,
			User:            toUserProperties(opt.UserProperties),
		},
	}
	if opt.MessageExpiry > 0 {
		packet.Properties.MessageExpiry = &opt.MessageExpiry
	}

	c.log.Packet(ctx, "publish", packet)
	res, err := pc.Publish(ctx, packet)

	// Paho v0.21 can return (nil, nil) for QoS 0.
	if packet.QoS == 0 && res == nil && err == nil {
		return nil
	}
	return pubErr.Translate(ctx, res, err)
}

// Subscribe registers a handler for messages matching the topic filter and
// subscribes to it on the server. The returned function removes the handler
// and unsubscribes.
func (c *Client) Subscribe(
	ctx context.Context,
	filter string,
	handler MessageHandler,
	opts ...SubscribeOption,
) (func(context.Context) error, error) {
	pc, err := c.client()
	if err != nil {
		return nil, err
	}

	if !IsValidFilter(filter) {
		return nil, &errors.Error{
			Message:       "invalid topic filter",
			Kind:          errors.InvalidInput,
			PropertyName:  "filter",
			PropertyValue: filter,
		}
	}
	if handler == nil {
		return nil, &errors.Error{
			Message:      "message handler must not be nil",
			Kind:         errors.InvalidInput,
			PropertyName: "handler",
		}
	}

	var opt SubscribeOptions
	opt.Apply(opts)

	remove := c.subs.Append(&subscription{filter, handler})

	packet := &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{
			Topic:   filter,
			QoS:     opt.QoS,
			NoLocal: opt.NoLocal,
		}},
	}
	c.log.Packet(ctx, "subscribe", packet)
	suback, err := pc.Subscribe(ctx, packet)
	c.log.Packet(ctx, "suback", suback)
	if err := subErr.Translate(ctx, suback, err); err != nil {
		remove()
		return nil, err
	}

	return func(ctx context.Context) error {
		remove()

		pc, err := c.client()
		if err != nil {
			return err
		}
		packet := &paho.Unsubscribe{Topics: []string{filter}}
		c.log.Packet(ctx, "unsubscribe", packet)
		unsuback, err := pc.Unsubscribe(ctx, packet)
		return unsubErr.Translate(ctx, unsuback, err)
	}, nil
}

func (c *Client) client() (*paho.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pc == nil {
		return nil, &errors.Error{
			Message:      "MQTT client not connected",
			Kind:         errors.StateInvalid,
			PropertyName: "connected",
		}
	}
	return c.pc, nil
}

// Paho calls this on its receive goroutine, so handlers run elsewhere; a
// handler that publishes at QoS 1 would otherwise block its own PUBACK.
func (c *Client) onPublishReceived(pr paho.PublishReceived) (bool, error) {
	p := pr.Packet
	c.log.Packet(c.ctx, "received", p)

	msg := &Message{Topic: p.Topic, Payload: p.Payload}
	msg.QoS = p.QoS
	msg.Retain = p.Retain
	if p.Properties != nil {
		msg.ContentType = p.Properties.ContentType
		msg.CorrelationData = p.Properties.CorrelationData
		msg.ResponseTopic = p.Properties.ResponseTopic
		msg.UserProperties = fromUserProperties(p.Properties.User)
		if p.Properties.MessageExpiry != nil {
			msg.MessageExpiry = *p.Properties.MessageExpiry
		}
	}

	handled := false
	for sub := range c.subs.Snapshot() {
		if IsTopicFilterMatch(sub.filter, p.Topic) {
			handled = true
			go sub.handler(c.ctx, msg)
		}
	}
	if !handled {
		c.log.Warn(c.ctx, "no handler for received message")
	}
	return true, nil
}

func toUserProperties(m map[string]string) paho.UserProperties {
	if len(m) == 0 {
		return nil
	}
	up := make(paho.UserProperties, 0, len(m))
	for k, v := range m {
		up = append(up, paho.UserProperty{Key: k, Value: v})
	}
	return up
}

func fromUserProperties(up paho.UserProperties) map[string]string {
	if len(up) == 0 {
		return nil
	}
	m := make(map[string]string, len(up))
	for _, p := range up {
		m[p.Key] = p.Value
	}
	return m
}
