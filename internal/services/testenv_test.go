package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okamura/project-management-api/internal/auth"
	"github.com/okamura/project-management-api/internal/authz"
	"github.com/okamura/project-management-api/internal/models"
	"github.com/okamura/project-management-api/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	userRepo    repository.UserRepository
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	engine      *authz.Engine
	tokens      *auth.TokenManager

	authService      *AuthService
	userService      *UserService
	projectService   *ProjectService
	taskService      *TaskService
	dashboardService *DashboardService
}

func setupTestEnv(t *testing.T) testEnv {
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

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return testEnv{
		db:          db,
		userRepo:    userRepo,
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		engine:      engine,
		tokens:      tokens,

		authService:      NewAuthService(userRepo, tokens),
		userService:      NewUserService(userRepo, engine),
		projectService:   NewProjectService(projectRepo, userRepo, engine),
		taskService:      NewTaskService(taskRepo, projectRepo, engine),
		dashboardService: NewDashboardService(taskRepo, projectRepo, userRepo),
	}
}

func (env testEnv) createUser(t *testing.T, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         "user-" + uuid.NewString()[:8],
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, env.userRepo.Create(user))
	return user
}

func (env testEnv) createInactiveUser(t *testing.T) *models.User {
	t.Helper()
	user := env.createUser(t, models.RoleUser)
	user.IsActive = false
	require.NoError(t, env.userRepo.Update(user))
	return user
}

func (env testEnv) createProject(t *testing.T, owner *models.User, members ...*models.User) *models.Project {
	t.Helper()
	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}
	project, err := env.projectService.CreateProject(owner, CreateProjectInput{
		Name:      "project-" + uuid.NewString()[:8],
		MemberIDs: memberIDs,
	})
	require.NoError(t, err)
	return project
}

func (env testEnv) createTask(t *testing.T, actor *models.User, project *models.Project, assignee *models.User) *models.Task {
	t.Helper()
	task, err := env.taskService.CreateTask(actor, CreateTaskInput{
		Title:      "task-" + uuid.NewString()[:8],
		ProjectID:  project.ID,
		AssignedTo: assignee.ID,
	})
	require.NoError(t, err)
	return task
}

func futureTime(d time.Duration) *time.Time {
	t := time.Now().Add(d)
	return &t
}
