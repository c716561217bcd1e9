// Package devops is the infrastructure mock domain: pod and
// deployment queries, log retrieval, and guarded scale/restart
// operations.
package devops

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcpgate/mcpgate/pkg/domains"
	"github.com/mcpgate/mcpgate/pkg/tool"
)

type container struct {
	Name  string `json:"name"`
	Image string `json:"image"`
	Ready bool   `json:"ready"`
}

type pod struct {
	Name       string      `json:"name"`
	Namespace  string      `json:"namespace"`
	Status     string      `json:"status"`
	Ready      bool        `json:"ready"`
	Restarts   int         `json:"restarts"`
	Age        string      `json:"age"`
	Node       string      `json:"node"`
	Containers []container `json:"containers"`
}

type deployment struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Replicas  int    `json:"replicas"`
	Available int    `json:"available"`
	Ready     int    `json:"ready"`
	Image     string `json:"image"`
	Strategy  string `json:"strategy"`
}

// Adapter serves the devops domain from in-memory fixtures.
type Adapter struct {
	mu          sync.RWMutex
	pods        map[string]pod
	deployments map[string]deployment
	logs        map[string][]string
	handlers    map[string]domains.Handler
}

// New creates the devops adapter with its seed dataset.
func New() *Adapter {
	a := &Adapter{
		pods: map[string]pod{
			"api-server-7d8f9b6c5-abc12": {
				Name: "api-server-7d8f9b6c5-abc12", Namespace: "production",
				Status: "Running", Ready: true, Restarts: 0, Age: "5d", Node: "node-01",
				Containers: []container{{Name: "api", Image: "api-server:v2.3.1", Ready: true}},
			},
			"api-server-7d8f9b6c5-def34": {
				Name: "api-server-7d8f9b6c5-def34", Namespace: "production",
				Status: "Running", Ready: true, Restarts: 1, Age: "5d", Node: "node-02",
				Containers: []container{{Name: "api", Image: "api-server:v2.3.1", Ready: true}},
			},
			"worker-5c4d3b2a1-xyz99": {
				Name: "worker-5c4d3b2a1-xyz99", Namespace: "production",
				Status: "Running", Ready: true, Restarts: 0, Age: "3d", Node: "node-01",
				Containers: []container{{Name: "worker", Image: "worker:v1.5.0", Ready: true}},
			},
			"db-primary-0": {
				Name: "db-primary-0", Namespace: "production",
				Status: "Running", Ready: true, Restarts: 0, Age: "30d", Node: "node-03",
				Containers: []container{{Name: "postgres", Image: "postgres:15.2", Ready: true}},
			},
		},
		deployments: map[string]deployment{
			"api-server": {
				Name: "api-server", Namespace: "production", Replicas: 2,
				Available: 2, Ready: 2, Image: "api-server:v2.3.1", Strategy: "RollingUpdate",
			},
			"worker": {
				Name: "worker", Namespace: "production", Replicas: 1,
				Available: 1, Ready: 1, Image: "worker:v1.5.0", Strategy: "RollingUpdate",
			},
		},
		logs: map[string][]string{
			"api-server-7d8f9b6c5-abc12": {
				"2026-02-09T10:00:00Z INFO Starting API server on port 8080",
				"2026-02-09T10:00:01Z INFO Connected to database",
				"2026-02-09T10:00:02Z INFO Loading configuration",
				"2026-02-09T10:00:03Z INFO Server ready to accept connections",
				"2026-02-09T10:15:00Z INFO GET /health 200 2ms",
				"2026-02-09T10:15:30Z INFO GET /api/users 200 45ms",
			},
			"worker-5c4d3b2a1-xyz99": {
				"2026-02-09T10:00:00Z INFO Worker starting",
				"2026-02-09T10:00:01Z INFO Connected to message queue",
				"2026-02-09T10:05:00Z INFO Processing job: batch-001",
				"2026-02-09T10:05:30Z INFO Job batch-001 completed successfully",
			},
		},
	}
	a.handlers = map[string]domains.Handler{
		"get_pod_logs":       a.getPodLogs,
		"list_pods":          a.listPods,
		"get_deployment":     a.getDeployment,
		"scale_deployment":   a.scaleDeployment,
		"restart_deployment": a.restartDeployment,
		"get_cluster_health": a.getClusterHealth,
	}
	return a
}

// Domain returns the adapter's domain name.
func (a *Adapter) Domain() string { return "devops" }

// Execute dispatches one devops action.
func (a *Adapter) Execute(ctx context.Context, action string, params map[string]interface{}, execCtx tool.ExecutionContext) (interface{}, error) {
	log.Debug().Str("action", action).Str("user_id", execCtx.Identity.ID).Msg("DevOps action")
	return domains.Dispatch(ctx, "devops", action, a.handlers, params, execCtx)
}

// Tools returns the devops tool definitions.
func (a *Adapter) Tools() []tool.Definition {
	return []tool.Definition{
		{
			Name:        "get_pod_logs",
			Domain:      "devops",
			Description: "Retrieve logs from a Kubernetes pod. Returns recent log lines from the specified pod.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"pod_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the pod",
				},
				"namespace": map[string]interface{}{
					"type":        "string",
					"description": "Kubernetes namespace",
					"default":     "production",
				},
				"container": map[string]interface{}{
					"type":        "string",
					"description": "Container name (if pod has multiple containers)",
				},
				"lines": map[string]interface{}{
					"type":        "integer",
					"description": "Number of log lines to retrieve",
					"default":     100,
				},
			}, "pod_name"),
			ExecutionType: tool.ExecutionRead,
			Permissions: tool.Permission{
				Level: tool.LevelUser,
				Roles: []string{"devops", "developer"},
			},
		},
		{
			Name:        "list_pods",
			Domain:      "devops",
			Description: "List all pods in a namespace with their status and health information.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"namespace": map[string]interface{}{
					"type":        "string",
					"description": "Kubernetes namespace",
					"default":     "production",
				},
				"label_selector": map[string]interface{}{
					"type":        "string",
					"description": "Label selector to filter pods (e.g., app=api-server)",
				},
			}),
			ExecutionType: tool.ExecutionRead,
			Permissions:   tool.Permission{Level: tool.LevelUser},
		},
		{
			Name:        "get_deployment",
			Domain:      "devops",
			Description: "Get detailed information about a Kubernetes deployment.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"deployment_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the deployment",
				},
				"namespace": map[string]interface{}{
					"type":        "string",
					"description": "Kubernetes namespace",
					"default":     "production",
				},
			}, "deployment_name"),
			ExecutionType: tool.ExecutionRead,
			Permissions:   tool.Permission{Level: tool.LevelUser},
		},
		{
			Name:        "scale_deployment",
			Domain:      "devops",
			Description: "Scale a Kubernetes deployment to the specified number of replicas.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"deployment_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the deployment",
				},
				"replicas": map[string]interface{}{
					"type":        "integer",
					"description": "Target number of replicas",
					"minimum":     0,
					"maximum":     100,
				},
				"namespace": map[string]interface{}{
					"type":        "string",
					"description": "Kubernetes namespace",
					"default":     "production",
				},
			}, "deployment_name", "replicas"),
			ExecutionType: tool.ExecutionWrite,
			Permissions: tool.Permission{
				Level:  tool.LevelAdmin,
				Roles:  []string{"devops", "sre"},
				Scopes: []string{"devops:scale"},
			},
		},
		{
			Name:        "restart_deployment",
			Domain:      "devops",
			Description: "Trigger a rolling restart of a deployment.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"deployment_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the deployment",
				},
				"namespace": map[string]interface{}{
					"type":        "string",
					"description": "Kubernetes namespace",
					"default":     "production",
				},
			}, "deployment_name"),
			ExecutionType: tool.ExecutionWrite,
			Permissions: tool.Permission{
				Level:  tool.LevelAdmin,
				Roles:  []string{"devops", "sre"},
				Scopes: []string{"devops:restart"},
			},
		},
		{
			Name:          "get_cluster_health",
			Domain:        "devops",
			Description:   "Get overall health status of the Kubernetes cluster.",
			Version:       "1.0.0",
			InputSchema:   domains.ObjectSchema(map[string]interface{}{}),
			ExecutionType: tool.ExecutionRead,
			Permissions:   tool.Permission{Level: tool.LevelUser},
		},
	}
}

func (a *Adapter) getPodLogs(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	podName := domains.StrParam(params, "pod_name", "")
	lines := domains.IntParam(params, "lines", 100)
	if podName == "" {
		return nil, domains.Invalidf("pod_name is required")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, ok := a.pods[podName]; !ok {
		return nil, domains.Invalidf("Pod %s not found", podName)
	}

	logs, ok := a.logs[podName]
	if !ok {
		logs = []string{fmt.Sprintf("%s INFO No logs available", time.Now().UTC().Format(time.RFC3339))}
	}
	if lines < len(logs) {
		logs = logs[len(logs)-lines:]
	}

	return map[string]interface{}{
		"pod":            podName,
		"namespace":      domains.StrParam(params, "namespace", "production"),
		"lines_returned": len(logs),
		"logs":           logs,
	}, nil
}

func (a *Adapter) listPods(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	namespace := domains.StrParam(params, "namespace", "production")
	labelSelector := domains.StrParam(params, "label_selector", "")

	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.pods))
	for name := range a.pods {
		names = append(names, name)
	}
	sort.Strings(names)

	results := []map[string]interface{}{}
	for _, name := range names {
		p := a.pods[name]
		if p.Namespace != namespace {
			continue
		}
		if labelSelector != "" {
			// Simple label matching for mock data.
			key := strings.SplitN(labelSelector, "=", 2)[0]
			if !strings.Contains(p.Name, key) {
				continue
			}
		}
		results = append(results, map[string]interface{}{
			"name":     p.Name,
			"status":   p.Status,
			"ready":    p.Ready,
			"restarts": p.Restarts,
			"age":      p.Age,
			"node":     p.Node,
		})
	}
	return results, nil
}

func (a *Adapter) getDeployment(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	name := domains.StrParam(params, "deployment_name", "")
	if name == "" {
		return nil, domains.Invalidf("deployment_name is required")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	dep, ok := a.deployments[name]
	if !ok {
		return nil, domains.Invalidf("Deployment %s not found", name)
	}
	return dep, nil
}

func (a *Adapter) scaleDeployment(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	name := domains.StrParam(params, "deployment_name", "")
	if name == "" {
		return nil, domains.Invalidf("deployment_name is required")
	}
	if _, ok := params["replicas"]; !ok {
		return nil, domains.Invalidf("replicas is required")
	}
	replicas := domains.IntParam(params, "replicas", -1)
	if replicas < 0 || replicas > 100 {
		return nil, domains.Invalidf("replicas must be between 0 and 100")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	dep, ok := a.deployments[name]
	if !ok {
		return nil, domains.Invalidf("Deployment %s not found", name)
	}

	previous := dep.Replicas
	dep.Replicas = replicas
	dep.Available = replicas
	dep.Ready = replicas
	a.deployments[name] = dep

	return map[string]interface{}{
		"success":           true,
		"deployment":        name,
		"previous_replicas": previous,
		"new_replicas":      replicas,
	}, nil
}

func (a *Adapter) restartDeployment(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	name := domains.StrParam(params, "deployment_name", "")
	if name == "" {
		return nil, domains.Invalidf("deployment_name is required")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, ok := a.deployments[name]; !ok {
		return nil, domains.Invalidf("Deployment %s not found", name)
	}
	return map[string]interface{}{
		"success":    true,
		"deployment": name,
		"message":    fmt.Sprintf("Rolling restart initiated for %s", name),
	}, nil
}

func (a *Adapter) getClusterHealth(_ map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	running, pending := 0, 0
	for _, p := range a.pods {
		switch p.Status {
		case "Running":
			running++
		case "Pending":
			pending++
		}
	}
	return map[string]interface{}{
		"status":                "healthy",
		"nodes":                 3,
		"nodes_ready":           3,
		"pods_running":          running,
		"pods_pending":          pending,
		"pods_failed":           0,
		"deployments":           len(a.deployments),
		"deployments_available": len(a.deployments),
	}, nil
}
