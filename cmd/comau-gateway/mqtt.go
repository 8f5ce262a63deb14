package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/illinois-automation/comau-gateway/pkg/comau"
	"github.com/illinois-automation/comau-gateway/pkg/datamodel"
)

var errNotConnected = errors.New("not connected to MQTT broker")

// newTLSConfig loads the client certificate pair mounted by the deployment.
func newTLSConfig() *tls.Config {
	certpool := x509.NewCertPool()
	pemCerts, err := os.ReadFile("/SSL_certs/mqtt/ca.crt")
	if err == nil {
		ok := certpool.AppendCertsFromPEM(pemCerts)
		if !ok {
			zap.S().Errorf("failed to parse root certificate")
		}
	} else {
		zap.S().Errorf("error reading CA certificate: %s", err)
	}

	cert, err := tls.LoadX509KeyPair("/SSL_certs/mqtt/tls.crt", "/SSL_certs/mqtt/tls.key")
	if err != nil {
		zap.S().Fatalf("error reading client certificate: %s", err)
	}

	cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		zap.S().Fatalf("error parsing client certificate: %s", err)
	}

	/* #nosec G402 -- Remote verification is not yet implemented*/
	return &tls.Config{
		RootCAs:            certpool,
		InsecureSkipVerify: true,
		Certificates:       []tls.Certificate{cert},
	}
}

// setupMQTT configures and connects the broker session. Subscriptions are
// added separately so the commander can exist before the handlers do.
func setupMQTT(brokerURL, clientID, password string, sslEnabled bool) MQTT.Client {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetUsername(clientID)
	if password != "" {
		opts.SetPassword(password)
	}
	opts.SetClientID(clientID)
	if sslEnabled {
		opts.SetTLSConfig(newTLSConfig())
	}

	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(c MQTT.Client) {
		optionsReader := c.OptionsReader()
		zap.S().Infof("Connected to MQTT broker (%s)", optionsReader.ClientID())
	})
	opts.SetConnectionLostHandler(func(c MQTT.Client, err error) {
		zap.S().Warnf("Connection lost to MQTT broker: %s", err)
	})

	zap.S().Infof("MQTT connection configured (%s, %s, TLS: %v)", clientID, brokerURL, sslEnabled)

	client := MQTT.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		zap.S().Fatalf("Error connecting to MQTT broker: %s", token.Error())
	}
	return client
}

type subscription struct {
	topic   string
	qos     byte
	handler MQTT.MessageHandler
}

// subscribeAll subscribes with QoS 2; a lost key sequence desynchronizes
// the terminal, a duplicated one types twice.
func subscribeAll(client MQTT.Client, subs []subscription) {
	for _, s := range subs {
		if token := client.Subscribe(s.topic, s.qos, s.handler); token.Wait() && token.Error() != nil {
			zap.S().Fatalf("Error subscribing to %s: %s", s.topic, token.Error())
		}
		zap.S().Infof("MQTT subscribed to %s", s.topic)
	}
}

// mqttPublisher adapts the paho client to the commander's Publisher.
type mqttPublisher struct {
	client MQTT.Client
}

func (p *mqttPublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	messagesPublished.Inc()
	return nil
}

// onKeyboardText types raw text from the keyboard topic verbatim into the
// terminal, one ENTER after it. Operators use this as a remote prompt.
func onKeyboardText(commander *comau.Commander) MQTT.MessageHandler {
	return func(client MQTT.Client, message MQTT.Message) {
		text := string(message.Payload())
		if text == "" {
			return
		}
		zap.S().Infof("Keyboard text received: %s", text)
		go func() {
			seq := []datamodel.KeyAction{
				{Action: datamodel.ActionTypeText, Text: text, Description: "operator text", DelayAfter: 10},
				{Action: datamodel.ActionPressKey, Key: datamodel.KeyEnter, Description: "confirm", DelayAfter: 500},
			}
			res, err := commander.SendSequence(context.Background(), "KEYBOARD", seq)
			if err != nil {
				zap.S().Errorf("Error typing keyboard text: %s", err)
				return
			}
			if !res.OK() {
				zap.S().Warnf("Keyboard text not executed: %s", res.Message)
			}
		}()
	}
}
