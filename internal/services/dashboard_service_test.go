package services

import (
	"testing"
	"time"

	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_UserDashboard_EmptyDefaults(t *testing.T) {
	env := setupTestEnv(t)

	user := env.createUser(t, models.RoleUser)

	dash, err := env.dashboardService.GetUserDashboard(user)
	require.NoError(t, err)

	require.EqualValues(t, 0, dash.TotalTasks)
	require.EqualValues(t, 0, dash.OverdueTasks)
	require.Empty(t, dash.UpcomingTasks)
	require.Equal(t, 0, dash.ProjectCount)

	// Every status and priority key is present even with no data
	require.Len(t, dash.TasksByStatus, 3)
	require.Len(t, dash.TasksByPriority, 3)
	for _, count := range dash.TasksByStatus {
		require.EqualValues(t, 0, count)
	}
	for _, count := range dash.TasksByPriority {
		require.EqualValues(t, 0, count)
	}
}

func TestDashboardService_UserDashboard_Counts(t *testing.T) {
	env := setupTestEnv(t)

	owner := env.createUser(t, models.RoleUser)
	member := env.createUser(t, models.RoleUser)
	project := env.createProject(t, owner, member)
	other := env.createProject(t, member)

	// Two tasks assigned to member, one to owner
	taskA := env.createTask(t, owner, project, member)
	env.createTask(t, member, other, member)
	env.createTask(t, owner, project, owner)

	completed := models.TaskStatusCompleted
	_, err := env.taskService.UpdateTask(member, taskA.ID, UpdateTaskInput{Status: &completed})
	require.NoError(t, err)

	dash, err := env.dashboardService.GetUserDashboard(member)
	require.NoError(t, err)

	require.EqualValues(t, 2, dash.TotalTasks)
	require.EqualValues(t, 1, dash.TasksByStatus[models.TaskStatusCompleted])
	require.EqualValues(t, 1, dash.TasksByStatus[models.TaskStatusTodo])
	require.EqualValues(t, 0, dash.TasksByStatus[models.TaskStatusInProgress])
	require.EqualValues(t, 2, dash.TasksByPriority[models.TaskPriorityMedium])
	require.Equal(t, 2, dash.ProjectCount)
}

func TestDashboardService_UserDashboard_OverdueAndUpcoming(t *testing.T) {
	env := setupTestEnv(t)

	owner := env.createUser(t, models.RoleUser)
	project := env.createProject(t, owner)

	// Upcoming tasks keep their future due dates
	for i := 0; i < 3; i++ {
		_, err := env.taskService.CreateTask(owner, CreateTaskInput{
			Title:     "upcoming",
			ProjectID: project.ID,
			DueDate:   futureTime(time.Duration(i+1) * 24 * time.Hour),
		})
		require.NoError(t, err)
	}

	// Push one task's due date into the past directly; the service rejects
	// past dates at creation time.
	late := env.createTask(t, owner, project, owner)
	past := time.Now().Add(-48 * time.Hour)
	late.DueDate = &past
	require.NoError(t, env.taskRepo.Update(late))

	// A completed task with a past due date does not count as overdue
	done, err := env.taskService.CreateTask(owner, CreateTaskInput{
		Title:     "done",
		ProjectID: project.ID,
		Status:    models.TaskStatusCompleted,
	})
	require.NoError(t, err)
	done.DueDate = &past
	require.NoError(t, env.taskRepo.Update(done))

	dash, err := env.dashboardService.GetUserDashboard(owner)
	require.NoError(t, err)

	require.EqualValues(t, 1, dash.OverdueTasks)
	require.Len(t, dash.UpcomingTasks, 3)

	// Nearest deadline first
	for i := 1; i < len(dash.UpcomingTasks); i++ {
		prev, cur := dash.UpcomingTasks[i-1].DueDate, dash.UpcomingTasks[i].DueDate
		require.NotNil(t, prev)
		require.NotNil(t, cur)
		require.False(t, cur.Before(*prev))
	}
}

func TestDashboardService_AdminStats(t *testing.T) {
	env := setupTestEnv(t)

	admin := env.createUser(t, models.RoleAdmin)
	owner := env.createUser(t, models.RoleUser)
	env.createInactiveUser(t)

	project := env.createProject(t, owner)
	env.createTask(t, owner, project, owner)
	env.createTask(t, owner, project, owner)

	stats, err := env.dashboardService.GetAdminStats(admin)
	require.NoError(t, err)

	require.EqualValues(t, 3, stats.TotalUsers)
	require.EqualValues(t, 2, stats.ActiveUsers)
	require.EqualValues(t, 1, stats.TotalProjects)
	require.EqualValues(t, 1, stats.ProjectsByStatus[models.ProjectStatusActive])
	require.EqualValues(t, 2, stats.TotalTasks)
	require.EqualValues(t, 2, stats.TasksByStatus[models.TaskStatusTodo])
	require.EqualValues(t, 0, stats.OverdueTasks)
}

func TestDashboardService_AdminStats_RequiresAdmin(t *testing.T) {
	env := setupTestEnv(t)

	user := env.createUser(t, models.RoleUser)

	_, err := env.dashboardService.GetAdminStats(user)
	requireCode(t, err, apierrors.ErrCodeAccessDenied)
}
