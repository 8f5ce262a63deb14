package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comau_gateway_messages_published_total",
		Help: "Messages published to the MQTT broker",
	})

	responsesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comau_gateway_responses_received_total",
		Help: "Bridge responses received on the memory-data topic",
	})

	routinesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comau_gateway_routines_total",
		Help: "Executed robot routines by name and outcome",
	}, []string{"routine", "status"})
)
