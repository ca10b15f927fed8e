package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/okamura/project-management-api/internal/auth"
	"github.com/okamura/project-management-api/internal/authz"
	"github.com/okamura/project-management-api/internal/dto"
	"github.com/okamura/project-management-api/internal/middleware"
	"github.com/okamura/project-management-api/internal/models"
	"github.com/okamura/project-management-api/internal/repository"
	"github.com/okamura/project-management-api/internal/services"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type taskTestEnv struct {
	db             *gorm.DB
	router         *gin.Engine
	authService    *services.AuthService
	projectService *services.ProjectService
	taskService    *services.TaskService
	tokens         *auth.TokenManager
}

func setupTaskTestEnv(t *testing.T) taskTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
	)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	engine := authz.NewEngine(projectRepo, userRepo)
	tokens := auth.NewTokenManager("test-secret", 15*time.Minute, 24*time.Hour)

	authService := services.NewAuthService(userRepo, tokens)
	projectService := services.NewProjectService(projectRepo, userRepo, engine)
	taskService := services.NewTaskService(taskRepo, projectRepo, engine)

	log := zap.NewNop()
	handler := NewTaskHandler(taskService, log)

	r := gin.New()
	tasks := r.Group("/api/tasks", middleware.RequireAuth(tokens))
	{
		tasks.POST("", handler.CreateTask)
		tasks.GET("", handler.ListTasks)
		tasks.PATCH("/bulk/status", handler.BulkUpdateStatus)
		tasks.GET("/:id", handler.GetTask)
		tasks.PUT("/:id", handler.UpdateTask)
		tasks.DELETE("/:id", handler.DeleteTask)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return taskTestEnv{
		db:             db,
		router:         r,
		authService:    authService,
		projectService: projectService,
		taskService:    taskService,
		tokens:         tokens,
	}
}

// registerUser creates an account through the auth service and returns the
// user together with a usable Bearer header value.
func (env taskTestEnv) registerUser(t *testing.T, email string) (*models.User, string) {
	t.Helper()

	user, pair, err := env.authService.Register(services.RegisterInput{
		Name:     email,
		Email:    email,
		Password: "supersecret",
	})
	require.NoError(t, err)
	return user, "Bearer " + pair.AccessToken
}

func TestTaskHandler_CreateAndGet(t *testing.T) {
	env := setupTaskTestEnv(t)

	owner, _ := env.registerUser(t, "owner@example.com")
	member, memberAuth := env.registerUser(t, "member@example.com")
	_, outsiderAuth := env.registerUser(t, "outsider@example.com")

	project, err := env.projectService.CreateProject(owner, services.CreateProjectInput{
		Name:      "Shared Project",
		MemberIDs: []string{member.ID},
	})
	require.NoError(t, err)

	// A member creates a task assigned to themselves
	w := postJSON(t, env.router, "/api/tasks", map[string]interface{}{
		"title":       "Ship it",
		"project_id":  project.ID,
		"assigned_to": member.ID,
		"priority":    "high",
	}, map[string]string{"Authorization": memberAuth})

	require.Equal(t, http.StatusCreated, w.Code)

	var created dto.TaskDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "Ship it", created.Title)
	require.Equal(t, member.ID, created.AssignedTo)
	require.Equal(t, models.TaskPriorityHigh, created.Priority)

	// A non-member cannot read it
	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+created.ID, nil)
	req.Header.Set("Authorization", outsiderAuth)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "TASK_ACCESS_DENIED", errorCode(t, w))

	// The member can
	req = httptest.NewRequest(http.MethodGet, "/api/tasks/"+created.ID, nil)
	req.Header.Set("Authorization", memberAuth)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestTaskHandler_Create_AssigneeWithoutAccess(t *testing.T) {
	env := setupTaskTestEnv(t)

	owner, ownerAuth := env.registerUser(t, "owner@example.com")
	outsider, _ := env.registerUser(t, "outsider@example.com")

	project, err := env.projectService.CreateProject(owner, services.CreateProjectInput{
		Name: "Solo Project",
	})
	require.NoError(t, err)

	w := postJSON(t, env.router, "/api/tasks", map[string]interface{}{
		"title":       "Misassigned",
		"project_id":  project.ID,
		"assigned_to": outsider.ID,
	}, map[string]string{"Authorization": ownerAuth})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "ASSIGNED_USER_NO_ACCESS", errorCode(t, w))
}

func TestTaskHandler_Create_UnknownProject(t *testing.T) {
	env := setupTaskTestEnv(t)

	_, ownerAuth := env.registerUser(t, "owner@example.com")

	w := postJSON(t, env.router, "/api/tasks", map[string]interface{}{
		"title":      "Orphan",
		"project_id": "does-not-exist",
	}, map[string]string{"Authorization": ownerAuth})

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "PROJECT_NOT_FOUND", errorCode(t, w))
}

func TestTaskHandler_ListScopedToAccessibleProjects(t *testing.T) {
	env := setupTaskTestEnv(t)

	owner, ownerAuth := env.registerUser(t, "owner@example.com")
	stranger, _ := env.registerUser(t, "stranger@example.com")

	mine, err := env.projectService.CreateProject(owner, services.CreateProjectInput{Name: "Mine"})
	require.NoError(t, err)
	theirs, err := env.projectService.CreateProject(stranger, services.CreateProjectInput{Name: "Theirs"})
	require.NoError(t, err)

	_, err = env.taskService.CreateTask(owner, services.CreateTaskInput{Title: "visible", ProjectID: mine.ID})
	require.NoError(t, err)
	_, err = env.taskService.CreateTask(stranger, services.CreateTaskInput{Title: "hidden", ProjectID: theirs.ID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", ownerAuth)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.TaskListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.EqualValues(t, 1, response.TotalCount)
	require.Len(t, response.Tasks, 1)
	require.Equal(t, "visible", response.Tasks[0].Title)
}

func TestTaskHandler_BulkUpdateStatus(t *testing.T) {
	env := setupTaskTestEnv(t)

	owner, ownerAuth := env.registerUser(t, "owner@example.com")

	project, err := env.projectService.CreateProject(owner, services.CreateProjectInput{Name: "Batch"})
	require.NoError(t, err)

	taskA, err := env.taskService.CreateTask(owner, services.CreateTaskInput{Title: "a", ProjectID: project.ID})
	require.NoError(t, err)
	taskB, err := env.taskService.CreateTask(owner, services.CreateTaskInput{Title: "b", ProjectID: project.ID})
	require.NoError(t, err)

	w := doJSON(t, env.router, http.MethodPatch, "/api/tasks/bulk/status", map[string]interface{}{
		"task_ids": []string{taskA.ID, taskB.ID},
		"status":   "completed",
	}, map[string]string{"Authorization": ownerAuth})

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Tasks []dto.TaskDTO `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Tasks, 2)
	for _, task := range response.Tasks {
		require.Equal(t, models.TaskStatusCompleted, task.Status)
		require.NotNil(t, task.CompletedAt)
	}
}

func TestTaskHandler_Delete(t *testing.T) {
	env := setupTaskTestEnv(t)

	owner, ownerAuth := env.registerUser(t, "owner@example.com")

	project, err := env.projectService.CreateProject(owner, services.CreateProjectInput{Name: "Cleanup"})
	require.NoError(t, err)
	task, err := env.taskService.CreateTask(owner, services.CreateTaskInput{Title: "doomed", ProjectID: project.ID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/tasks/"+task.ID, nil)
	req.Header.Set("Authorization", ownerAuth)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/tasks/"+task.ID, nil)
	req.Header.Set("Authorization", ownerAuth)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "TASK_NOT_FOUND", errorCode(t, w))
}
