package queue

import (
	"testing"

	"github.com/equipment-registry/internal/config"

	"github.com/hibiken/asynq"
)

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueInstallationSync(InstallationSyncPayload{EquipmentID: 1}); err != nil {
		t.Fatalf("disabled enqueue should be noop: %v", err)
	}
	var nilClient *Client
	if err := nilClient.EnqueueInstallationSync(InstallationSyncPayload{EquipmentID: 1}); err != nil {
		t.Fatalf("nil client enqueue should be noop: %v", err)
	}
}

func TestInstallationSyncTaskPayload(t *testing.T) {
	task, err := NewInstallationSyncTask(InstallationSyncPayload{EquipmentID: 42})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskInstallationERPSync {
		t.Fatalf("task type want %s got %s", TaskInstallationERPSync, task.Type())
	}
	payload, err := ParseInstallationSyncPayload(task)
	if err != nil {
		t.Fatalf("parse payload failed: %v", err)
	}
	if payload.EquipmentID != 42 {
		t.Fatalf("equipment id want 42 got %d", payload.EquipmentID)
	}

	if _, err := ParseInstallationSyncPayload(asynq.NewTask(TaskInstallationERPSync, []byte(`{}`))); err == nil {
		t.Fatalf("zero equipment id should fail")
	}
	if _, err := ParseInstallationSyncPayload(asynq.NewTask(TaskInstallationERPSync, []byte(`not-json`))); err == nil {
		t.Fatalf("invalid json should fail")
	}
}

func TestBuildServerConfig(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: "redis", Port: 6380, DB: 2, Concurrency: 3})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 3 {
		t.Fatalf("concurrency want 3 got %d", cfg.Concurrency)
	}
	if cfg.Queues[ERPQueue] != 1 || cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("default queues missing: %+v", cfg.Queues)
	}
}
