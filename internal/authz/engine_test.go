package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/models"
	"github.com/okamura/project-management-api/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type engineTestEnv struct {
	db          *gorm.DB
	engine      *Engine
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

func setupEngineTestEnv(t *testing.T) engineTestEnv {
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

	projectRepo := repository.NewProjectRepository(db)
	userRepo := repository.NewUserRepository(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return engineTestEnv{
		db:          db,
		engine:      NewEngine(projectRepo, userRepo),
		projectRepo: projectRepo,
		userRepo:    userRepo,
	}
}

func (env engineTestEnv) createUser(t *testing.T, role models.UserRole, active bool) *models.User {
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

	// The is_active column default makes gorm skip a false value on insert,
	// so deactivation has to be a separate update.
	if !active {
		user.IsActive = false
		require.NoError(t, env.userRepo.Update(user))
	}
	return user
}

func (env engineTestEnv) createProject(t *testing.T, owner *models.User, members ...*models.User) *models.Project {
	t.Helper()
	project := &models.Project{
		ID:      uuid.NewString(),
		Name:    "project",
		OwnerID: owner.ID,
		Status:  models.ProjectStatusActive,
	}
	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}
	require.NoError(t, env.projectRepo.Create(project, memberIDs))
	return project
}

func TestEngine_CanAccessProject(t *testing.T) {
	env := setupEngineTestEnv(t)

	owner := env.createUser(t, models.RoleUser, true)
	member := env.createUser(t, models.RoleUser, true)
	outsider := env.createUser(t, models.RoleUser, true)
	admin := env.createUser(t, models.RoleAdmin, true)
	project := env.createProject(t, owner, member)

	tests := []struct {
		name    string
		actor   *models.User
		allowed bool
		code    string
	}{
		{"owner has access without a member row", owner, true, ""},
		{"member has access", member, true, ""},
		{"outsider is denied", outsider, false, errors.ErrCodeProjectAccessDenied},
		{"admin has access", admin, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := env.engine.CanAccessProject(tt.actor, project)
			require.NoError(t, err)
			require.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				require.Equal(t, tt.code, d.Code)
			}
		})
	}
}

func TestEngine_CanAccessTask_UsesTaskCode(t *testing.T) {
	env := setupEngineTestEnv(t)

	owner := env.createUser(t, models.RoleUser, true)
	outsider := env.createUser(t, models.RoleUser, true)
	project := env.createProject(t, owner)

	d, err := env.engine.CanAccessTask(outsider, project)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, errors.ErrCodeTaskAccessDenied, d.Code)
}

func TestEngine_CanMutateProject_OwnerOnly(t *testing.T) {
	env := setupEngineTestEnv(t)

	owner := env.createUser(t, models.RoleUser, true)
	member := env.createUser(t, models.RoleUser, true)
	admin := env.createUser(t, models.RoleAdmin, true)
	project := env.createProject(t, owner, member)

	require.True(t, env.engine.CanMutateProject(owner, project).Allowed)

	d := env.engine.CanMutateProject(member, project)
	require.False(t, d.Allowed)
	require.Equal(t, errors.ErrCodeInsufficientPermissions, d.Code)

	// Admin does not bypass owner-only project mutation
	d = env.engine.CanMutateProject(admin, project)
	require.False(t, d.Allowed)
	require.Equal(t, errors.ErrCodeInsufficientPermissions, d.Code)
}

func TestEngine_CanAddMember(t *testing.T) {
	env := setupEngineTestEnv(t)

	owner := env.createUser(t, models.RoleUser, true)
	member := env.createUser(t, models.RoleUser, true)
	fresh := env.createUser(t, models.RoleUser, true)
	inactive := env.createUser(t, models.RoleUser, false)
	project := env.createProject(t, owner, member)

	tests := []struct {
		name     string
		actor    *models.User
		targetID string
		allowed  bool
		code     string
	}{
		{"owner adds new user", owner, fresh.ID, true, ""},
		{"non-owner cannot add", member, fresh.ID, false, errors.ErrCodeInsufficientPermissions},
		{"owner cannot be re-added", owner, owner.ID, false, errors.ErrCodeAlreadyMember},
		{"existing member rejected", owner, member.ID, false, errors.ErrCodeAlreadyMember},
		{"unknown user rejected", owner, uuid.NewString(), false, errors.ErrCodeInvalidUser},
		{"inactive user rejected", owner, inactive.ID, false, errors.ErrCodeInvalidUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := env.engine.CanAddMember(tt.actor, project, tt.targetID)
			require.NoError(t, err)
			require.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				require.Equal(t, tt.code, d.Code)
			}
		})
	}
}

func TestEngine_CanRemoveMember(t *testing.T) {
	env := setupEngineTestEnv(t)

	owner := env.createUser(t, models.RoleUser, true)
	member := env.createUser(t, models.RoleUser, true)
	other := env.createUser(t, models.RoleUser, true)
	admin := env.createUser(t, models.RoleAdmin, true)
	project := env.createProject(t, owner, member, other)

	// The owner can never be removed, whoever asks
	for _, actor := range []*models.User{owner, member, admin} {
		d := env.engine.CanRemoveMember(actor, project, owner.ID)
		require.False(t, d.Allowed)
		require.Equal(t, errors.ErrCodeCannotRemoveOwner, d.Code)
	}

	// Owner removes a member
	require.True(t, env.engine.CanRemoveMember(owner, project, member.ID).Allowed)

	// Member removes themselves
	require.True(t, env.engine.CanRemoveMember(member, project, member.ID).Allowed)

	// Member cannot remove another member
	d := env.engine.CanRemoveMember(member, project, other.ID)
	require.False(t, d.Allowed)
	require.Equal(t, errors.ErrCodeInsufficientPermissions, d.Code)
}

func TestEngine_CanAssignTask(t *testing.T) {
	env := setupEngineTestEnv(t)

	owner := env.createUser(t, models.RoleUser, true)
	member := env.createUser(t, models.RoleUser, true)
	outsider := env.createUser(t, models.RoleUser, true)
	project := env.createProject(t, owner, member)

	d, err := env.engine.CanAssignTask(project, owner.ID)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = env.engine.CanAssignTask(project, member.ID)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = env.engine.CanAssignTask(project, outsider.ID)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, errors.ErrCodeAssignedUserNoAccess, d.Code)
}

func TestEngine_CanAccessUser(t *testing.T) {
	env := setupEngineTestEnv(t)

	user := env.createUser(t, models.RoleUser, true)
	other := env.createUser(t, models.RoleUser, true)
	admin := env.createUser(t, models.RoleAdmin, true)

	require.True(t, env.engine.CanAccessUser(user, user.ID).Allowed)
	require.True(t, env.engine.CanAccessUser(admin, user.ID).Allowed)

	d := env.engine.CanAccessUser(user, other.ID)
	require.False(t, d.Allowed)
	require.Equal(t, errors.ErrCodeAccessDenied, d.Code)
}

func TestEngine_AccessReflectsMembershipChanges(t *testing.T) {
	env := setupEngineTestEnv(t)

	owner := env.createUser(t, models.RoleUser, true)
	member := env.createUser(t, models.RoleUser, true)
	project := env.createProject(t, owner, member)

	d, err := env.engine.CanAccessProject(member, project)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Facts are read fresh per call: removal is visible immediately
	require.NoError(t, env.projectRepo.RemoveMember(project.ID, member.ID))

	d, err = env.engine.CanAccessProject(member, project)
	require.NoError(t, err)
	require.False(t, d.Allowed)
}

func TestEngine_DecisionErr(t *testing.T) {
	require.Nil(t, Allow().Err())

	err := Deny(errors.ErrCodeAccessDenied, "nope").Err()
	require.NotNil(t, err)
	require.Equal(t, errors.ErrCodeAccessDenied, err.Code)
	require.Equal(t, "nope", err.Message)
}
