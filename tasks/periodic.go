package tasks

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"
	"gopkg.in/yaml.v3"
)

type scheduleEntry struct {
	Cronspec string `yaml:"cronspec"`
	TaskType string `yaml:"task_type"`
}

type scheduleFile struct {
	Configs []*scheduleEntry `yaml:"configs"`
}

// ScheduleProvider feeds the periodic task manager from a YAML file, so the
// digest schedule can change without a rebuild.
type ScheduleProvider struct {
	path string
}

func NewScheduleProvider() *ScheduleProvider {
	name := os.Getenv("TASKS_SCHEDULE_FILE")
	if len(name) < 1 {
		name = filepath.Join("tasks", "config.yml")
	}

	path, err := filepath.Abs(filepath.Clean(name))
	if err != nil {
		slog.Error(fmt.Sprintf("Could not resolve the task schedule file '%s': %v", name, err))
		return &ScheduleProvider{}
	}

	return &ScheduleProvider{path: path}
}

func (p *ScheduleProvider) GetConfigs() ([]*asynq.PeriodicTaskConfig, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		slog.Error(fmt.Sprintf("Could not read the task schedule file: %v", err))
		return nil, err
	}

	schedule := &scheduleFile{}
	if err := yaml.Unmarshal(data, &schedule); err != nil {
		return nil, err
	}

	configs := []*asynq.PeriodicTaskConfig{}

	for _, entry := range schedule.Configs {
		if len(entry.Cronspec) < 1 || len(entry.TaskType) < 1 {
			slog.Warn(fmt.Sprintf("Skipping incomplete schedule entry: %+v", entry))
			continue
		}

		configs = append(configs, &asynq.PeriodicTaskConfig{
			Cronspec: entry.Cronspec,
			Task:     asynq.NewTask(entry.TaskType, nil),
		})
	}

	return configs, nil
}
