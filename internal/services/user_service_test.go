package services

import (
	"context"
	"testing"

	"agencydesk/internal/models"
	"agencydesk/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type UserServiceTestSuite struct {
	suite.Suite
	ctx           context.Context
	users         *MockUserRepository
	bootstrapRepo *MockBootstrapRepository
	hasher        PasswordHasher
	service       UserService
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.users = &MockUserRepository{}
	suite.bootstrapRepo = &MockBootstrapRepository{}
	suite.users.Test(suite.T())
	suite.bootstrapRepo.Test(suite.T())
	suite.hasher = newTestHasher(suite.T())
	bootstrap := NewBootstrapService(suite.bootstrapRepo, suite.hasher, "Agency", nil)
	suite.service = NewUserService(suite.users, bootstrap, suite.hasher)
}

func (suite *UserServiceTestSuite) TearDownTest() {
	suite.users.AssertExpectations(suite.T())
	suite.bootstrapRepo.AssertExpectations(suite.T())
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func (suite *UserServiceTestSuite) TestProvisionAdmin() {
	system := &models.Tenant{ID: uuid.New(), IsSystem: true, IsActive: true}
	suite.users.On("EmailExists", suite.ctx, "second@agency.test").Return(false, nil)
	suite.bootstrapRepo.On("GetOrCreateSystemTenant", suite.ctx, "Agency").Return(system, nil)
	suite.users.On("Create", suite.ctx, mock.AnythingOfType("*models.User")).Return(nil).Run(func(args mock.Arguments) {
		user := args.Get(1).(*models.User)
		assert.Equal(suite.T(), models.RoleAdmin, user.Role)
		assert.Equal(suite.T(), system.ID, *user.TenantID)
		assert.True(suite.T(), user.IsActive)
		assert.True(suite.T(), suite.hasher.Verify("s3cret!", user.PasswordHash))
	})

	user, err := suite.service.ProvisionAdmin(suite.ctx, &ProvisionAdminRequest{
		Name: "Second", Email: "Second@agency.test", Password: "s3cret!",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "second@agency.test", user.Email)
}

func (suite *UserServiceTestSuite) TestProvisionAdmin_EmailInUse() {
	suite.users.On("EmailExists", suite.ctx, "taken@agency.test").Return(true, nil)

	_, err := suite.service.ProvisionAdmin(suite.ctx, &ProvisionAdminRequest{
		Name: "Taken", Email: "taken@agency.test", Password: "s3cret!",
	})
	assert.ErrorIs(suite.T(), err, ErrEmailInUse)
}

func (suite *UserServiceTestSuite) TestDeactivate() {
	actor, target := uuid.New(), uuid.New()
	suite.users.On("Deactivate", suite.ctx, target).Return(nil).Once()

	assert.NoError(suite.T(), suite.service.Deactivate(suite.ctx, actor, target))
	assert.ErrorIs(suite.T(), suite.service.Deactivate(suite.ctx, actor, actor), ErrValidation)

	missing := uuid.New()
	suite.users.On("Deactivate", suite.ctx, missing).Return(repositories.ErrNotFound).Once()
	assert.ErrorIs(suite.T(), suite.service.Deactivate(suite.ctx, actor, missing), ErrNotFound)
}

func (suite *UserServiceTestSuite) TestDeactivate_LastAdmin() {
	actor, lastAdmin := uuid.New(), uuid.New()
	suite.users.On("Deactivate", suite.ctx, lastAdmin).Return(repositories.ErrLastAdmin).Once()

	err := suite.service.Deactivate(suite.ctx, actor, lastAdmin)
	assert.ErrorIs(suite.T(), err, ErrLastAdmin)

	var appErr *AppError
	require.ErrorAs(suite.T(), err, &appErr)
	assert.Equal(suite.T(), 409, appErr.Status)
}

func (suite *UserServiceTestSuite) TestChangePassword() {
	digest, err := suite.hasher.Hash("old-pass")
	require.NoError(suite.T(), err)
	user := &models.User{ID: uuid.New(), PasswordHash: digest, IsActive: true, Role: models.RoleClient}
	suite.users.On("GetByID", suite.ctx, user.ID).Return(user, nil)
	suite.users.On("UpdatePassword", suite.ctx, user.ID, mock.AnythingOfType("string")).Return(nil).Once().
		Run(func(args mock.Arguments) {
			assert.True(suite.T(), suite.hasher.Verify("new-pass", args.String(2)))
		})

	assert.ErrorIs(suite.T(), suite.service.ChangePassword(suite.ctx, user.ID, "wrong", "new-pass"), ErrInvalidCredentials)
	assert.ErrorIs(suite.T(), suite.service.ChangePassword(suite.ctx, user.ID, "old-pass", "123"), ErrValidation)
	assert.NoError(suite.T(), suite.service.ChangePassword(suite.ctx, user.ID, "old-pass", "new-pass"))
}
