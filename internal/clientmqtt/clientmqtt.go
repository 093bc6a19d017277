package clientmqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"mqtt2dmx/internal/fixture"
	"mqtt2dmx/internal/gateway"
	"mqtt2dmx/internal/logger"
)

var (
	errUnknownTopic  = errors.New("unknown topic")
	errBadState      = errors.New("state must be ON or OFF")
	errBadTransition = errors.New("transition out of range")
)

// Light is a fixture controlled over MQTT.
type Light interface {
	Name() string
	TurnOn(cmd fixture.Command) (*gateway.Transition, error)
	TurnOff(transition *time.Duration) (*gateway.Transition, error)
	State() fixture.State
}

// Universe accepts raw channel writes.
type Universe interface {
	Name() string
	SetChannels(channels []int, values []byte, sendNow bool) error
}

type lightTopic struct {
	light    Light
	universe string
	state    string
}

// ClientMQTT структура клиента MQTT.
type ClientMQTT struct {
	ctx       context.Context
	log       logger.Logger
	cfgClient MQTTConf
	client    mqtt.Client
	opts      *mqtt.ClientOptions
	publish   func(topic string, payload []byte)

	mu     sync.RWMutex
	lights map[nameTopic]lightTopic
	raw    map[nameTopic]Universe
}

// MQTTClient is a convenience interface to use within this application.
type MQTTClient interface {
	Start(ctx context.Context) error
	Stop() error
	AddUniverse(u Universe, lights []Light)
}

var _ MQTTClient = (*ClientMQTT)(nil)

// NewClient конструктор.
func NewClient(log logger.Logger, cfgClient MQTTConf) *ClientMQTT {
	c := &ClientMQTT{
		ctx:       context.Background(),
		log:       log,
		cfgClient: cfgClient,
		lights:    map[nameTopic]lightTopic{},
		raw:       map[nameTopic]Universe{},
	}
	c.publish = c.publishRetained
	return c
}

func (c *ClientMQTT) logger() *logger.Log {
	return c.log.With(logger.Fields{"module": "mqtt"})
}

// Slug makes a topic level out of a name.
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "/", "_", "+", "_", "#", "_").Replace(s)
}

func (c *ClientMQTT) topic(parts ...string) string {
	return strings.Join(append([]string{c.cfgClient.TopicPrefix}, parts...), "/")
}

// AddUniverse registers the raw topic of u and the set/state topics of
// its lights. Call before Start.
func (c *ClientMQTT) AddUniverse(u Universe, lights []Light) {
	c.mu.Lock()
	defer c.mu.Unlock()

	uni := Slug(u.Name())
	c.raw[nameTopic(c.topic(uni, "raw", "set"))] = u
	for _, l := range lights {
		name := Slug(l.Name())
		set := nameTopic(c.topic(uni, name, "set"))
		if _, ok := c.lights[set]; ok {
			c.logger().Warnf("topic %s already taken, fixture %q skipped", set, l.Name())
			continue
		}
		c.lights[set] = lightTopic{light: l, universe: u.Name(), state: c.topic(uni, name, "state")}
	}
}

// Topics returns every command topic in no particular order.
func (c *ClientMQTT) Topics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.lights)+len(c.raw))
	for t := range c.raw {
		out = append(out, string(t))
	}
	for t := range c.lights {
		out = append(out, string(t))
	}
	return out
}

func (c *ClientMQTT) Start(ctx context.Context) error {
	if c.log.GetLevel() == "debug" {
		entry := c.logger().Entry
		mqtt.ERROR = log.New(entry.WriterLevel(logrus.ErrorLevel), "", 0)
		mqtt.CRITICAL = log.New(entry.WriterLevel(logrus.ErrorLevel), "[CRIT] ", 0)
		mqtt.WARN = log.New(entry.WriterLevel(logrus.WarnLevel), "", 0)
	}

	c.ctx = ctx

	c.opts = mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%s", c.cfgClient.Schema, c.cfgClient.Host, c.cfgClient.Port)).
		SetUsername(c.cfgClient.User).
		SetPassword(c.cfgClient.Password).
		SetDefaultPublishHandler(c.messageHandler).
		SetOnConnectHandler(c.connectHandler).
		SetConnectionLostHandler(c.connectLostHandler).
		SetClientID(c.cfgClient.ClientID).
		SetOrderMatters(true).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	c.client = mqtt.NewClient(c.opts)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	case <-c.ctx.Done():
		return errors.New("context canceled")
	}

	c.logger().Infof("Status: %v", c.client.IsConnected())
	c.publishAll()
	return nil
}

func (c *ClientMQTT) Stop() error {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(500)
	}
	return nil
}

// connectHandler subscribes on every (re)connect.
func (c *ClientMQTT) connectHandler(_ mqtt.Client) {
	c.logger().Info("client connected to server")
	for _, topic := range c.Topics() {
		c.sub(topic)
	}
}

func (c *ClientMQTT) connectLostHandler(_ mqtt.Client, err error) {
	c.logger().Errorf("server connect lost: %v", err)
}

func (c *ClientMQTT) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	c.logger().Debugf("received message: %s from topic: %s", msg.Payload(), msg.Topic())
	// Строго по порядку поступления; handle не блокируется.
	if err := c.handle(msg.Topic(), msg.Payload()); err != nil {
		c.logger().Errorf("message from %s dropped: %v", msg.Topic(), err)
	}
}

// handle routes one message to a fixture or a raw universe.
func (c *ClientMQTT) handle(topic string, payload []byte) error {
	c.mu.RLock()
	lt, isLight := c.lights[nameTopic(topic)]
	u, isRaw := c.raw[nameTopic(topic)]
	c.mu.RUnlock()

	switch {
	case isLight:
		return c.handleLight(lt, payload)
	case isRaw:
		return c.handleRaw(u, payload)
	}
	return fmt.Errorf("%w: %s", errUnknownTopic, topic)
}

func (c *ClientMQTT) handleLight(lt lightTopic, payload []byte) error {
	var data CommandPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("message could not be parsed (%s): %w", payload, err)
	}

	var transition *time.Duration
	if data.Transition != nil {
		if *data.Transition < 0 || *data.Transition > fixture.MaxTransition.Seconds() {
			return fmt.Errorf("%w: %vs not in [0, %v]", errBadTransition, *data.Transition, fixture.MaxTransition.Seconds())
		}
		d := time.Duration(*data.Transition * float64(time.Second))
		transition = &d
	}

	var err error
	switch strings.ToUpper(data.State) {
	case stateOff:
		_, err = lt.light.TurnOff(transition)
	case stateOn, "":
		cmd := fixture.Command{
			Brightness: data.Brightness,
			White:      data.WhiteValue,
			ColorTemp:  data.ColorTemp,
			Transition: transition,
		}
		if data.Color != nil {
			cmd.RGB = []int{data.Color.R, data.Color.G, data.Color.B}
		}
		_, err = lt.light.TurnOn(cmd)
	default:
		return fmt.Errorf("%w: %q", errBadState, data.State)
	}
	if err != nil {
		return err
	}

	c.publishState(lt)
	return nil
}

func (c *ClientMQTT) handleRaw(u Universe, payload []byte) error {
	var data Payload
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("message could not be parsed (%s): %w", payload, err)
	}
	if len(data) == 0 {
		return nil
	}
	channels := make([]int, len(data))
	values := make([]byte, len(data))
	for i, cmd := range data {
		channels[i] = int(cmd.Channel)
		values[i] = cmd.Value
	}
	c.logger().Debugf("raw write to %s: %v", u.Name(), data)
	return u.SetChannels(channels, values, true)
}

func (c *ClientMQTT) publishAll() {
	c.mu.RLock()
	topics := make([]lightTopic, 0, len(c.lights))
	for _, lt := range c.lights {
		topics = append(topics, lt)
	}
	c.mu.RUnlock()

	for _, lt := range topics {
		c.publishState(lt)
	}
}

func (c *ClientMQTT) publishState(lt lightTopic) {
	msg, err := json.Marshal(statePayload(lt.universe, lt.light.State()))
	if err != nil {
		c.logger().Errorf("state of %s: %v", lt.light.Name(), err)
		return
	}
	c.publish(lt.state, msg)
}

func statePayload(universe string, st fixture.State) StatePayload {
	p := StatePayload{
		State:      stateOff,
		Brightness: st.Brightness,
		WhiteValue: st.White,
		ColorTemp:  st.ColorTemp,
		Type:       string(st.Type),
		Universe:   universe,
		Channels:   st.Channels,
		Values:     make([]int, len(st.Values)),
		Transition: st.Transition.Seconds(),
	}
	if st.On {
		p.State = stateOn
	}
	if len(st.RGB) == 3 {
		p.Color = &Color{R: st.RGB[0], G: st.RGB[1], B: st.RGB[2]}
	}
	for i, v := range st.Values {
		p.Values[i] = int(v)
	}
	return p
}

func (c *ClientMQTT) publishRetained(topic string, msg []byte) {
	if c.client == nil {
		return
	}
	token := c.client.Publish(topic, c.cfgClient.Qos, true, msg)
	go func() {
		select {
		case <-c.ctx.Done():
			return
		case <-token.Done():
			if token.Error() != nil {
				c.logger().Errorf("error publish topic %s. %v", topic, token.Error())
			}
		}
	}()
}

func (c *ClientMQTT) sub(topic string) {
	token := c.client.Subscribe(topic, c.cfgClient.Qos, nil)
	go func() {
		select {
		case <-c.ctx.Done():
			return
		case <-token.Done():
			if token.Error() != nil {
				c.logger().Errorf("topic %s subscription error. %v", topic, token.Error())
				return
			}
		}
		c.logger().Debugf("topic %s subscribed", topic)
	}()
}
