package tasks

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScheduleProviderReadsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "schedule.yml")

	schedule := "configs:\n" +
		"  - cronspec: \"0 7 * * *\"\n" +
		"    task_type: \"reports:digest\"\n" +
		"  - cronspec: \"\"\n" +
		"    task_type: \"reports:broken\"\n"

	if err := os.WriteFile(file, []byte(schedule), 0o640); err != nil {
		t.Fatalf("Could not write schedule file: %v", err)
	}

	t.Setenv("TASKS_SCHEDULE_FILE", file)

	configs, err := NewScheduleProvider().GetConfigs()
	if err != nil {
		t.Fatalf("Could not read schedule: %v", err)
	}

	if len(configs) != 1 {
		t.Fatalf("Got %d schedule entries, expected 1", len(configs))
	}

	if configs[0].Cronspec != "0 7 * * *" {
		t.Errorf("Unexpected cronspec: %s", configs[0].Cronspec)
	}

	if configs[0].Task.Type() != "reports:digest" {
		t.Errorf("Unexpected task type: %s", configs[0].Task.Type())
	}
}

func TestScheduleProviderMissingFile(t *testing.T) {
	t.Setenv("TASKS_SCHEDULE_FILE", filepath.Join(t.TempDir(), "absent.yml"))

	if _, err := NewScheduleProvider().GetConfigs(); err == nil {
		t.Fatal("A missing schedule file must surface an error")
	}
}
