// Package hr is the human-resources mock domain: employee lookup and
// search, department information, and a guarded update operation.
package hr

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcpgate/mcpgate/pkg/domains"
	"github.com/mcpgate/mcpgate/pkg/tool"
)

type employee struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Position   string `json:"position"`
	Manager    string `json:"manager"`
	StartDate  string `json:"start_date"`
	Status     string `json:"status"`
}

type department struct {
	Head          string `json:"head"`
	EmployeeCount int    `json:"employee_count"`
	Budget        int    `json:"budget"`
}

// Adapter serves the hr domain from in-memory fixtures.
type Adapter struct {
	mu          sync.RWMutex
	employees   map[string]employee
	departments map[string]department
	handlers    map[string]domains.Handler
}

// New creates the hr adapter with its seed dataset.
func New() *Adapter {
	a := &Adapter{
		employees: map[string]employee{
			"E001": {
				ID: "E001", Name: "Alice Johnson", Email: "alice.johnson@company.com",
				Department: "Engineering", Position: "Senior Developer",
				Manager: "E010", StartDate: "2020-03-15", Status: "active",
			},
			"E002": {
				ID: "E002", Name: "Bob Smith", Email: "bob.smith@company.com",
				Department: "Engineering", Position: "Tech Lead",
				Manager: "E010", StartDate: "2019-06-01", Status: "active",
			},
			"E003": {
				ID: "E003", Name: "Carol Williams", Email: "carol.williams@company.com",
				Department: "HR", Position: "HR Manager",
				Manager: "E020", StartDate: "2018-01-10", Status: "active",
			},
		},
		departments: map[string]department{
			"Engineering": {Head: "E010", EmployeeCount: 25, Budget: 2500000},
			"HR":          {Head: "E020", EmployeeCount: 5, Budget: 500000},
			"Finance":     {Head: "E030", EmployeeCount: 10, Budget: 800000},
			"Marketing":   {Head: "E040", EmployeeCount: 15, Budget: 1200000},
		},
	}
	a.handlers = map[string]domains.Handler{
		"get_employee":     a.getEmployee,
		"search_employees": a.searchEmployees,
		"get_department":   a.getDepartment,
		"list_departments": a.listDepartments,
		"update_employee":  a.updateEmployee,
	}
	return a
}

// Domain returns the adapter's domain name.
func (a *Adapter) Domain() string { return "hr" }

// Execute dispatches one hr action.
func (a *Adapter) Execute(ctx context.Context, action string, params map[string]interface{}, execCtx tool.ExecutionContext) (interface{}, error) {
	log.Debug().Str("action", action).Str("user_id", execCtx.Identity.ID).Msg("HR action")
	return domains.Dispatch(ctx, "hr", action, a.handlers, params, execCtx)
}

// Tools returns the hr tool definitions.
func (a *Adapter) Tools() []tool.Definition {
	return []tool.Definition{
		{
			Name:        "get_employee",
			Domain:      "hr",
			Description: "Get detailed information about an employee by their ID. Returns employee name, email, department, position, and status.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"employee_id": map[string]interface{}{
					"type":        "string",
					"description": "The unique employee identifier (e.g., E001)",
				},
			}, "employee_id"),
			ExecutionType: tool.ExecutionRead,
			Permissions:   tool.Permission{Level: tool.LevelUser},
		},
		{
			Name:        "search_employees",
			Domain:      "hr",
			Description: "Search for employees by name, department, or position. Returns a list of matching employees.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (name, department, or position)",
				},
				"department": map[string]interface{}{
					"type":        "string",
					"description": "Filter by department name",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results to return",
					"default":     10,
				},
			}),
			ExecutionType: tool.ExecutionRead,
			Permissions:   tool.Permission{Level: tool.LevelUser},
		},
		{
			Name:        "get_department",
			Domain:      "hr",
			Description: "Get information about a department including head, employee count, and budget.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"department_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the department",
				},
			}, "department_name"),
			ExecutionType: tool.ExecutionRead,
			Permissions:   tool.Permission{Level: tool.LevelUser},
		},
		{
			Name:          "list_departments",
			Domain:        "hr",
			Description:   "List all departments in the organization.",
			Version:       "1.0.0",
			InputSchema:   domains.ObjectSchema(map[string]interface{}{}),
			ExecutionType: tool.ExecutionRead,
			Permissions:   tool.Permission{Level: tool.LevelPublic},
		},
		{
			Name:        "update_employee",
			Domain:      "hr",
			Description: "Update employee information. Requires HR admin permissions.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"employee_id": map[string]interface{}{
					"type":        "string",
					"description": "The employee ID to update",
				},
				"position": map[string]interface{}{
					"type":        "string",
					"description": "New position/title",
				},
				"department": map[string]interface{}{
					"type":        "string",
					"description": "New department",
				},
				"manager": map[string]interface{}{
					"type":        "string",
					"description": "New manager employee ID",
				},
			}, "employee_id"),
			ExecutionType: tool.ExecutionWrite,
			Permissions: tool.Permission{
				Level:  tool.LevelAdmin,
				Roles:  []string{"hr_admin"},
				Scopes: []string{"hr:write"},
			},
		},
	}
}

func (a *Adapter) getEmployee(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	id := domains.StrParam(params, "employee_id", "")
	if id == "" {
		return nil, domains.Invalidf("employee_id is required")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	emp, ok := a.employees[id]
	if !ok {
		return nil, domains.Invalidf("Employee %s not found", id)
	}
	return emp, nil
}

func (a *Adapter) searchEmployees(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	query := strings.ToLower(domains.StrParam(params, "query", ""))
	dept := domains.StrParam(params, "department", "")
	limit := domains.IntParam(params, "limit", 10)

	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.employees))
	for id := range a.employees {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := []employee{}
	for _, id := range ids {
		emp := a.employees[id]
		if dept != "" && emp.Department != dept {
			continue
		}
		if query != "" {
			searchable := strings.ToLower(emp.Name + " " + emp.Position + " " + emp.Department)
			if !strings.Contains(searchable, query) {
				continue
			}
		}
		results = append(results, emp)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (a *Adapter) getDepartment(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	name := domains.StrParam(params, "department_name", "")
	if name == "" {
		return nil, domains.Invalidf("department_name is required")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	dept, ok := a.departments[name]
	if !ok {
		return nil, domains.Invalidf("Department %s not found", name)
	}
	return map[string]interface{}{
		"name":           name,
		"head":           dept.Head,
		"employee_count": dept.EmployeeCount,
		"budget":         dept.Budget,
	}, nil
}

func (a *Adapter) listDepartments(_ map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.departments))
	for name := range a.departments {
		names = append(names, name)
	}
	return names, nil
}

func (a *Adapter) updateEmployee(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	id := domains.StrParam(params, "employee_id", "")
	if id == "" {
		return nil, domains.Invalidf("employee_id is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	emp, ok := a.employees[id]
	if !ok {
		return nil, domains.Invalidf("Employee %s not found", id)
	}

	if v := domains.StrParam(params, "position", ""); v != "" {
		emp.Position = v
	}
	if v := domains.StrParam(params, "department", ""); v != "" {
		emp.Department = v
	}
	if v := domains.StrParam(params, "manager", ""); v != "" {
		emp.Manager = v
	}
	a.employees[id] = emp

	return map[string]interface{}{"success": true, "employee": emp}, nil
}
