package orchestrator

import (
	"context"
	"fmt"
	"net/http"
)

// ecsMetadata — нужная часть ответа ECS task metadata v3.
type ecsMetadata struct {
	TaskARN    string `json:"TaskARN"`
	Containers []struct {
		Networks []struct {
			IPv4Addresses []string `json:"IPv4Addresses"`
		} `json:"Networks"`
		NetworkBindings []struct {
			ContainerPort int `json:"containerPort"`
			HostPort      int `json:"hostPort"`
		} `json:"NetworkBindings"`
	} `json:"Containers"`
}

// Registration — данные, с которыми воркер регистрируется на сервере.
type Registration struct {
	TaskARN   string `json:"task_arn"`
	PrivateIP string `json:"private_ip"`
	Port      int    `json:"port"`
}

// FetchRegistration читает метаданные ECS и находит host-порт,
// привязанный к containerPort воркера.
func (c *Client) FetchRegistration(ctx context.Context, metadataURL string, containerPort int) (*Registration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var meta ecsMetadata
	if err := c.do(req, "", &meta); err != nil {
		return nil, fmt.Errorf("fetch task metadata: %w", err)
	}

	if meta.TaskARN == "" || len(meta.Containers) == 0 ||
		len(meta.Containers[0].Networks) == 0 ||
		len(meta.Containers[0].Networks[0].IPv4Addresses) == 0 {
		return nil, ErrBadMetadata
	}

	container := meta.Containers[0]
	reg := &Registration{
		TaskARN:   meta.TaskARN,
		PrivateIP: container.Networks[0].IPv4Addresses[0],
	}
	for _, b := range container.NetworkBindings {
		if b.ContainerPort == containerPort {
			reg.Port = b.HostPort
			break
		}
	}
	if reg.Port == 0 {
		return nil, fmt.Errorf("%w: container port %d", ErrHostPortNotFound, containerPort)
	}
	return reg, nil
}

// RegisterChild регистрирует воркер на сервере.
func (c *Client) RegisterChild(ctx context.Context, reg *Registration) error {
	return c.postJSON(ctx, c.endpoints.RegisterChild, "", reg, nil)
}
