package store

import "tickler/internal/task"

// memoryBackend keeps nothing durable; useful for tests and ephemeral runs.
type memoryBackend struct{}

func newMemoryBackend() Backend { return memoryBackend{} }

func (memoryBackend) Load() ([]task.Task, task.Settings, error) { return nil, task.Settings{}, nil }
func (memoryBackend) PutTask(task.Task) error                   { return nil }
func (memoryBackend) DeleteTask(string) error                   { return nil }
func (memoryBackend) PutSettings(task.Settings) error           { return nil }
func (memoryBackend) Close() error                              { return nil }
