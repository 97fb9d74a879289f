//go:build integration
// +build integration

package di

import (
	"context"
	"os"
	"testing"

	"learnverse/internal/config"
	"learnverse/internal/observability"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ServiceContainerIntegrationTestSuite runs the container against the Postgres backend
type ServiceContainerIntegrationTestSuite struct {
	suite.Suite
	Config    *config.Config
	Logger    *observability.Logger
	Container ServiceContainerInterface
}

func TestServiceContainerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceContainerIntegrationTestSuite))
}

func (suite *ServiceContainerIntegrationTestSuite) SetupSuite() {
	testDatabaseURL := os.Getenv("TEST_DATABASE_URL")
	if testDatabaseURL == "" {
		suite.T().Skip("TEST_DATABASE_URL not set")
	}

	suite.Logger = observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})

	cfg := config.Default()
	cfg.Storage.Driver = config.DriverPostgres
	cfg.Storage.DSN = testDatabaseURL
	cfg.Storage.AutoMigrate = true
	suite.Config = cfg

	suite.Container = NewServiceContainer(cfg, suite.Logger)
	require.NoError(suite.T(), suite.Container.Initialize(context.Background()))
}

func (suite *ServiceContainerIntegrationTestSuite) TearDownSuite() {
	if suite.Container != nil {
		suite.NoError(suite.Container.Shutdown(context.Background()))
	}
}

func (suite *ServiceContainerIntegrationTestSuite) TestBackendIsPostgres() {
	suite.Equal(config.DriverPostgres, suite.Container.GetBackend().Name())
}

func (suite *ServiceContainerIntegrationTestSuite) TestCompletionAwardsBadge() {
	ctx := context.Background()
	profileID := uuid.NewString()

	progress, err := suite.Container.GetProgressService()
	suite.Require().NoError(err)
	result, err := progress.RecordCompletion(ctx, profileID, "science-1")
	suite.Require().NoError(err)
	suite.Contains(result.NewBadges, "science_beginner")

	badges, err := suite.Container.GetBadgeService()
	suite.Require().NoError(err)
	report, err := badges.Reconcile(ctx, profileID)
	suite.Require().NoError(err)
	suite.False(report.Changed())
}

func (suite *ServiceContainerIntegrationTestSuite) TestAttemptsAreNumberedPerModule() {
	ctx := context.Background()
	profileID := uuid.NewString()

	attempts, err := suite.Container.GetAttemptService()
	suite.Require().NoError(err)
	next, err := attempts.NextAttemptNumber(ctx, profileID, "maths-2")
	suite.Require().NoError(err)
	suite.Equal(1, next)
}
