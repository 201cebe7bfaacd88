package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskJobGeocode = "jobs.geocode"

type JobGeocodePayload struct {
	JobID   string `json:"jobId"`
	Address string `json:"address"`
}

func NewJobGeocodeTask(payload JobGeocodePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskJobGeocode, data), nil
}

func ParseJobGeocodePayload(task *asynq.Task) (JobGeocodePayload, error) {
	var payload JobGeocodePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return JobGeocodePayload{}, err
	}
	return payload, nil
}
