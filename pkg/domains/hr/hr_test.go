package hr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpgate/mcpgate/pkg/tool"
)

func execute(t *testing.T, a *Adapter, action string, params map[string]interface{}) tool.Result {
	t.Helper()
	out, err := a.Execute(context.Background(), action, params, tool.ExecutionContext{
		Identity: tool.Identity{ID: "u1"},
	})
	require.NoError(t, err)
	result, ok := out.(tool.Result)
	require.True(t, ok)
	return result
}

func TestHRAdapter(t *testing.T) {
	a := New()

	t.Run("exposes five tools", func(t *testing.T) {
		assert.Len(t, a.Tools(), 5)
		assert.Equal(t, "hr", a.Domain())
	})

	t.Run("get_employee returns the record", func(t *testing.T) {
		result := execute(t, a, "get_employee", map[string]interface{}{"employee_id": "E001"})
		require.Equal(t, tool.StatusSuccess, result.Status)

		emp := result.Data.(employee)
		assert.Equal(t, "Alice Johnson", emp.Name)
		assert.Equal(t, "Engineering", emp.Department)
	})

	t.Run("get_employee unknown id is a validation error", func(t *testing.T) {
		result := execute(t, a, "get_employee", map[string]interface{}{"employee_id": "E999"})
		assert.Equal(t, tool.StatusError, result.Status)
		assert.Equal(t, "VALIDATION_ERROR", result.ErrorCode)
		assert.Contains(t, result.Error, "E999")
	})

	t.Run("search filters by department and query", func(t *testing.T) {
		result := execute(t, a, "search_employees", map[string]interface{}{"department": "Engineering"})
		require.Equal(t, tool.StatusSuccess, result.Status)
		assert.Len(t, result.Data.([]employee), 2)

		result = execute(t, a, "search_employees", map[string]interface{}{"query": "tech lead"})
		matches := result.Data.([]employee)
		require.Len(t, matches, 1)
		assert.Equal(t, "Bob Smith", matches[0].Name)
	})

	t.Run("search honors the limit", func(t *testing.T) {
		result := execute(t, a, "search_employees", map[string]interface{}{"limit": float64(1)})
		assert.Len(t, result.Data.([]employee), 1)
	})

	t.Run("get_department includes the name", func(t *testing.T) {
		result := execute(t, a, "get_department", map[string]interface{}{"department_name": "Engineering"})
		require.Equal(t, tool.StatusSuccess, result.Status)

		dept := result.Data.(map[string]interface{})
		assert.Equal(t, "Engineering", dept["name"])
		assert.Equal(t, 25, dept["employee_count"])
	})

	t.Run("list_departments returns all names", func(t *testing.T) {
		result := execute(t, a, "list_departments", nil)
		assert.Len(t, result.Data.([]string), 4)
	})

	t.Run("update_employee applies partial changes", func(t *testing.T) {
		adapter := New()
		result := execute(t, adapter, "update_employee", map[string]interface{}{
			"employee_id": "E001",
			"position":    "Staff Engineer",
		})
		require.Equal(t, tool.StatusSuccess, result.Status)

		after := execute(t, adapter, "get_employee", map[string]interface{}{"employee_id": "E001"})
		assert.Equal(t, "Staff Engineer", after.Data.(employee).Position)
		assert.Equal(t, "Engineering", after.Data.(employee).Department)
	})

	t.Run("unknown action is not_found", func(t *testing.T) {
		result := execute(t, a, "fire_everyone", nil)
		assert.Equal(t, tool.StatusNotFound, result.Status)
	})
}
