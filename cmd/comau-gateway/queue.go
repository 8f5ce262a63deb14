package main

import (
	"github.com/beeker1121/goque"
)

const defaultQueuePath = "/data/queue"

// setupQueue opens the disk-backed routine queue. Requests received while
// the robot is busy, or while the gateway restarts, stay queued.
func setupQueue(path string) (*goque.Queue, error) {
	return goque.OpenQueue(path)
}

func closeQueue(pq *goque.Queue) error {
	return pq.Close()
}

// enqueueRequest stores the raw JSON payload; it is decoded when the
// worker picks it up, so a malformed request cannot wedge the handler.
func enqueueRequest(pq *goque.Queue, payload []byte) error {
	_, err := pq.Enqueue(payload)
	return err
}
