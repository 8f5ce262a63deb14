package main

import (
	"net/http"
	"time"

	"github.com/beeker1121/goque"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/united-manufacturing-hub/umh-utils/env"
	"github.com/united-manufacturing-hub/umh-utils/logger"
	"go.uber.org/zap"

	"github.com/illinois-automation/comau-gateway/internal"
	"github.com/illinois-automation/comau-gateway/pkg/comau"
)

var buildtime string

func main() {
	logLevel, _ := env.GetAsString("LOGGING_LEVEL", false, "PRODUCTION") //nolint:errcheck
	log := logger.New(logLevel)
	defer func(logger *zap.SugaredLogger) {
		err := logger.Sync()
		if err != nil {
			panic(err)
		}
	}(log)

	zap.S().Infof("This is comau-gateway build date: %s", buildtime)

	internal.Initfgtrace()

	brokerURL, err := env.GetAsString("BROKER_URL", true, "")
	if err != nil {
		zap.S().Fatal(err)
	}
	mqttPassword, err := env.GetAsString("MQTT_PASSWORD", false, "")
	if err != nil {
		zap.S().Error(err)
	}
	sslEnabled, err := env.GetAsBool("MQTT_ENABLE_TLS", false, false)
	if err != nil {
		zap.S().Error(err)
	}

	commandsTopic, err := env.GetAsString("COMMANDS_TOPIC", false, "COMAU/commands")
	if err != nil {
		zap.S().Error(err)
	}
	responsesTopic, err := env.GetAsString("RESPONSES_TOPIC", false, "COMAU/memoryData")
	if err != nil {
		zap.S().Error(err)
	}
	keyboardTopic, err := env.GetAsString("KEYBOARD_TOPIC", false, "COMAU/toRobot")
	if err != nil {
		zap.S().Error(err)
	}
	routinesTopic, err := env.GetAsString("ROUTINES_TOPIC", false, "COMAU/routines")
	if err != nil {
		zap.S().Error(err)
	}

	queuePath, err := env.GetAsString("QUEUE_PATH", false, defaultQueuePath)
	if err != nil {
		zap.S().Error(err)
	}
	commandTimeoutMs, err := env.GetAsInt("COMMAND_TIMEOUT_MS", false, 30000)
	if err != nil {
		zap.S().Error(err)
	}

	zap.S().Debugf("Setting up routine queue at %s", queuePath)
	pq, err := setupQueue(queuePath)
	if err != nil {
		zap.S().Fatalf("Error setting up routine queue: %s", err)
	}

	zap.S().Debugf("Setting up MQTT")
	mqttClient := setupMQTT(brokerURL, "COMAU_GATEWAY", mqttPassword, sslEnabled)

	commander := comau.NewCommander(
		&mqttPublisher{client: mqttClient},
		commandsTopic,
		time.Duration(commandTimeoutMs)*time.Millisecond)
	robot := comau.NewRobot(commander)

	subscribeAll(mqttClient, []subscription{
		{responsesTopic, 2, onMemoryData(commander)},
		{routinesTopic, 2, onRoutineRequest(pq)},
		{keyboardTopic, 2, onKeyboardText(commander)},
	})

	zap.S().Debug("Starting healthcheck")
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000000))
	health.AddReadinessCheck("mqtt-connected", func() error {
		if !mqttClient.IsConnected() {
			return errNotConnected
		}
		return nil
	})
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe("0.0.0.0:8086", health)
		if err != nil {
			zap.S().Errorf("Error starting healthcheck: %s", err)
		}
	}()
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		/* #nosec G114 */
		err := http.ListenAndServe("0.0.0.0:2112", nil)
		if err != nil {
			zap.S().Errorf("Error starting metrics endpoint: %s", err)
		}
	}()

	gs := internal.NewGracefulShutdown(func() error {
		zap.S().Info("Shutting down")
		mqttClient.Disconnect(1000)
		return closeQueue(pq)
	})

	go runWorker(pq, robot, mqttClient, routinesTopic+"/result", gs)

	select {} // block until the graceful shutdown handler exits
}

// onMemoryData feeds bridge responses back to the commander.
func onMemoryData(commander *comau.Commander) MQTT.MessageHandler {
	return func(client MQTT.Client, message MQTT.Message) {
		responsesReceived.Inc()
		commander.HandleResponse(message.Payload())
	}
}

// onRoutineRequest persists a routine trigger into the disk queue. The
// worker executes them one at a time; the robot cannot interleave
// routines.
func onRoutineRequest(pq *goque.Queue) MQTT.MessageHandler {
	return func(client MQTT.Client, message MQTT.Message) {
		zap.S().Debugf("Routine request on %s: %s", message.Topic(), message.Payload())
		if err := enqueueRequest(pq, message.Payload()); err != nil {
			zap.S().Errorf("Error enqueueing routine request: %s", err)
		}
	}
}
