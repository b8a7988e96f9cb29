package client

import (
	"context"

	"github.com/classhub/trustgate/internal/api"
	"github.com/classhub/trustgate/internal/tasks"
)

func (c *Client) ListTasks(ctx context.Context) ([]tasks.TaskStatus, string, error) {
	var resp []tasks.TaskStatus
	correlation, err := c.get(ctx, c.url().
		setPath(api.ListTasksRoute).
		build(), &resp)
	return resp, correlation, err
}

func (c *Client) TriggerTask(ctx context.Context, name string) (string, error) {
	return c.post(ctx, c.url().
		setPath(api.TriggerTaskRoute).
		setPathParam("name", name).
		build(), nil, nil)
}

func (c *Client) GetTaskLogs(ctx context.Context, name string) ([]tasks.LogEntry, string, error) {
	var resp []tasks.LogEntry
	correlation, err := c.get(ctx, c.url().
		setPath(api.LogsForTaskRoute).
		setPathParam("name", name).
		build(), &resp)
	return resp, correlation, err
}
