package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/wrappers"

	"github.com/robotalks/uartrand/pkg/sample"
)

// Topic suffixes under TopicPrefix + emitter ID.
const (
	TopicSample = "sample"
	TopicMeta   = "meta"
)

var (
	// ErrNotConnected indicates the broker connection is not established.
	ErrNotConnected = errors.New("mqtt not connected")
	// ErrPublishTimeout indicates the broker didn't acknowledge in PublishTimeout.
	ErrPublishTimeout = errors.New("mqtt publish timeout")
)

// MQTT publishes samples to a broker.
// Sample payload is a protobuf encoded UInt32Value.
type MQTT struct {
	Client         paho.Client
	TopicPrefix    string
	Meta           Meta
	PublishTimeout time.Duration
}

// ClientOptionsFromURL creates ClientOptions from URL.
// The path of the URL is used as topic prefix.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	if u.Host == "" {
		return nil, "", fmt.Errorf("broker host missing in %q", serverURL)
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.TrimPrefix(u.Path, "/")
	if topicPrefix != "" && !strings.HasSuffix(topicPrefix, "/") {
		topicPrefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, topicPrefix, nil
}

// NewMQTT creates the MQTT mirror, it connects when it runs.
func NewMQTT(options *paho.ClientOptions, topicPrefix string, meta Meta) *MQTT {
	m := &MQTT{
		TopicPrefix:    topicPrefix,
		Meta:           meta,
		PublishTimeout: 200 * time.Millisecond,
	}
	if options.ClientID == "" && meta.ID != "" {
		options.SetClientID("uartrand-" + meta.ID)
	}
	options.SetBinaryWill(m.Topic(TopicMeta), nil, 1, true)
	options.SetOnConnectHandler(m.onConnect)
	options.SetConnectionLostHandler(m.onConnectionLost)
	m.Client = paho.NewClient(options)
	return m
}

// NewMQTTFromURL creates the MQTT mirror from broker URL.
func NewMQTTFromURL(brokerURL string, meta Meta) (*MQTT, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewMQTT(opts, topicPrefix, meta), nil
}

// Topic returns the full topic for the suffix.
func (m *MQTT) Topic(suffix string) string {
	return m.TopicPrefix + m.Meta.ID + "/" + suffix
}

// Name implements Named.
func (m *MQTT) Name() string {
	return "mqtt"
}

// Run implements Runnable. It connects and stays connected until ctx is done.
func (m *MQTT) Run(ctx context.Context) error {
	if token := m.Client.Connect(); token.Wait() && token.Error() != nil {
		glog.Errorf("mqtt connect error: %v", token.Error())
		return token.Error()
	}
	<-ctx.Done()
	m.Client.Publish(m.Topic(TopicMeta), 1, true, []byte(nil)).WaitTimeout(m.PublishTimeout)
	m.Client.Disconnect(250)
	return ctx.Err()
}

// MirrorSample implements Mirror.
func (m *MQTT) MirrorSample(ctx context.Context, s sample.Sample, at time.Time) error {
	if !m.Client.IsConnected() {
		return ErrNotConnected
	}
	payload, err := EncodeSample(s)
	if err != nil {
		return err
	}
	topic := m.Topic(TopicSample)
	glog.V(3).Infof("PUB %q %d", topic, s)
	token := m.Client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(m.PublishTimeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

func (m *MQTT) onConnect(c paho.Client) {
	glog.Info("mqtt connected")
	payload, err := json.Marshal(&m.Meta)
	if err != nil {
		glog.Errorf("encode meta error: %v", err)
		return
	}
	c.Publish(m.Topic(TopicMeta), 1, true, payload)
}

func (m *MQTT) onConnectionLost(c paho.Client, err error) {
	glog.Warningf("mqtt connection lost: %v", err)
}

// EncodeSample encodes the MQTT payload of a sample.
func EncodeSample(s sample.Sample) ([]byte, error) {
	return proto.Marshal(&wrappers.UInt32Value{Value: uint32(s)})
}

// DecodeSample decodes the MQTT payload of a sample.
func DecodeSample(payload []byte) (sample.Sample, error) {
	var v wrappers.UInt32Value
	if err := proto.Unmarshal(payload, &v); err != nil {
		return 0, err
	}
	if v.Value > uint32(sample.Max) {
		return 0, sample.ErrRange
	}
	return sample.Sample(v.Value), nil
}
