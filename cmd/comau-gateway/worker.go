package main

import (
	"context"
	"fmt"
	"time"

	"github.com/beeker1121/goque"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/illinois-automation/comau-gateway/internal"
	"github.com/illinois-automation/comau-gateway/pkg/comau"
	"github.com/illinois-automation/comau-gateway/pkg/datamodel"
)

// Routine names accepted on the routines topic.
const (
	routineMoveToHome    = "move_to_home"
	routineSayHello      = "say_hello"
	routineFeeder        = "feeder_routine"
	routineSetPressDelay = "set_press_delay"
	routineSetGripper    = "set_gripper"
	routineResetRobot    = "reset_robot"
	routineClearErrors   = "clear_errors"
	routineHomeKey       = "home_key"
	routineStartProgram  = "start_program"
	routineStopProgram   = "stop_program"
)

// A feeder run with notch punching moves the arm several times; give the
// whole routine room before declaring it dead.
const routineDeadline = 5 * time.Minute

// runWorker drains the routine queue one request at a time and publishes
// each result. Runs until shutdown.
func runWorker(pq *goque.Queue, robot *comau.Robot, client MQTT.Client, resultTopic string, gs internal.GracefulShutdownHandler) {
	var failures int64
	for {
		if gs.ShuttingDown() {
			zap.S().Info("Worker stopping")
			return
		}

		item, err := pq.Peek()
		if err == goque.ErrEmpty || err == goque.ErrOutOfBounds {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if err != nil {
			zap.S().Errorf("Error peeking routine queue: %s", err)
			failures++
			internal.SleepBackedOff(failures, 10*time.Millisecond, 10*time.Second)
			continue
		}

		var req datamodel.RoutineRequest
		if err = json.Unmarshal(item.Value, &req); err != nil {
			zap.S().Warnf("Dropping undecodable routine request: %s", err)
			routinesExecuted.WithLabelValues("unknown", "invalid").Inc()
			dequeue(pq)
			continue
		}

		result := executeRoutine(robot, req)
		routinesExecuted.WithLabelValues(result.Routine, result.Status).Inc()
		publishResult(client, resultTopic, result)

		if result.Status == datamodel.StatusError {
			failures++
			internal.SleepBackedOff(failures, 10*time.Millisecond, 10*time.Second)
		} else {
			failures = 0
		}

		// The request is gone from the queue even if it failed: robot
		// motion is not safe to replay blindly after a crash.
		dequeue(pq)
	}
}

func dequeue(pq *goque.Queue) {
	if _, err := pq.Dequeue(); err != nil {
		zap.S().Errorf("Error dequeuing routine request: %s", err)
	}
}

func publishResult(client MQTT.Client, topic string, result datamodel.RoutineResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		zap.S().Errorf("Error marshalling routine result: %s", err)
		return
	}
	if token := client.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
		zap.S().Errorf("Error publishing routine result: %s", token.Error())
		return
	}
	messagesPublished.Inc()
}

// executeRoutine dispatches one request to the robot and folds the
// outcome into a RoutineResult.
func executeRoutine(robot *comau.Robot, req datamodel.RoutineRequest) datamodel.RoutineResult {
	ctx, cancel := context.WithTimeout(context.Background(), routineDeadline)
	defer cancel()

	result := datamodel.RoutineResult{
		Routine:   req.Routine,
		RequestID: req.RequestID,
		Status:    datamodel.StatusSuccess,
	}

	zap.S().Infof("Executing routine %s (request_id %s)", req.Routine, req.RequestID)

	var err error
	switch req.Routine {
	case routineMoveToHome:
		var id int
		id, err = robot.MoveToHome(ctx)
		result.SequenceID = id
		result.Message = "robot moved to HOME"

	case routineSayHello:
		var greeting string
		greeting, err = robot.SayHello(ctx)
		result.Message = greeting

	case routineFeeder:
		if req.Args == nil {
			err = fmt.Errorf("feeder routine needs args")
			break
		}
		count := req.Args.NotchCount
		if count == 0 {
			count = len(req.Args.Notches)
		}
		var id int
		id, err = robot.FeederRoutine(ctx, count, req.Args.HeightMM)
		result.SequenceID = id
		if err == nil && len(req.Args.Notches) > 0 {
			err = robot.SendNotchMatrix(ctx, id, req.Args.Notches)
		}
		result.Message = fmt.Sprintf("feeder routine with %d notches", count)

	case routineSetPressDelay:
		if req.Args == nil {
			err = fmt.Errorf("set_press_delay needs args")
			break
		}
		err = robot.SetPressDelay(ctx, req.Args.DelayMs)
		result.Message = fmt.Sprintf("press delay set to %d ms", req.Args.DelayMs)

	case routineSetGripper:
		if req.Args == nil || req.Args.GripperOpen == nil {
			err = fmt.Errorf("set_gripper needs gripper_open")
			break
		}
		err = robot.SetGripper(ctx, *req.Args.GripperOpen)
		result.Message = fmt.Sprintf("gripper set to %v", *req.Args.GripperOpen)

	case routineResetRobot:
		err = robot.ResetRobot(ctx)
		result.Message = "robot reset"

	case routineClearErrors:
		err = robot.ClearErrors(ctx)
		result.Message = "errors cleared"

	case routineHomeKey:
		err = robot.HomeByKeyboard(ctx)
		result.Message = "HOME typed on the terminal"

	case routineStartProgram:
		err = robot.StartProgram(ctx)
		result.Message = "program started"

	case routineStopProgram:
		err = robot.StopProgram(ctx)
		result.Message = "program stopped"

	default:
		err = fmt.Errorf("unknown routine %q", req.Routine)
	}

	if err != nil {
		zap.S().Errorf("Routine %s failed: %s", req.Routine, err)
		result.Status = datamodel.StatusError
		result.Message = err.Error()
		result.RobotStatus = string(comau.RobotError)
	} else {
		result.RobotStatus = string(comau.RobotActive)
		zap.S().Infof("Routine %s done", req.Routine)
	}
	return result
}
