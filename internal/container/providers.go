// Package container provides dependency injection and lifecycle management
// for the benefit approval engine following Clean Architecture principles.
package container

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/benefit-approval/internal/application/dispatcher"
	"github.com/garyjia/benefit-approval/internal/application/port"
	"github.com/garyjia/benefit-approval/internal/application/service"
	appworkflow "github.com/garyjia/benefit-approval/internal/application/workflow"
	"github.com/garyjia/benefit-approval/internal/config"
	domainwf "github.com/garyjia/benefit-approval/internal/domain/workflow"
	"github.com/garyjia/benefit-approval/internal/infrastructure/identity"
	"github.com/garyjia/benefit-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/benefit-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/benefit-approval/internal/infrastructure/storage"
	"github.com/garyjia/benefit-approval/pkg/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase creates the database connection and transaction manager.
// Also runs any pending database migrations automatically.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	// Run database migrations if migrations directory is configured
	if cfg.MigrationsDir != "" {
		migrator := database.NewMigrator(db, logger)

		if err := migrator.RunMigrations(cfg.MigrationsDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Request: repository.NewRequestRepository(sqlDB, logger),
		History: repository.NewHistoryRepository(sqlDB, logger),
		Ledger:  repository.NewLedgerRepository(sqlDB, logger),
		Hold:    repository.NewHoldRepository(sqlDB, logger),
	}, nil
}

// ProvideRoleProvider creates the role provider from the configured grants.
func ProvideRoleProvider(cfg *config.RolesConfig) (port.RoleProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("roles config is required")
	}
	return identity.NewStaticRoleProvider(cfg.Grants), nil
}

// ProvideAttachmentStore creates the attachment URI validator.
func ProvideAttachmentStore(cfg *config.WorkflowConfig) (port.AttachmentStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("workflow config is required")
	}
	return storage.NewURIStore(cfg.AttachmentSchemes...), nil
}

// ProvideLedgerService creates the budget ledger service.
func ProvideLedgerService(repos *RepositoryBundle, cfg *config.Config, logger *zap.Logger) (service.LedgerService, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return service.NewLedgerService(
		repos.Ledger,
		repos.Hold,
		func(category domainwf.Category) decimal.Decimal {
			return cfg.LimitForCategory(category.String())
		},
		&zapLoggerAdapter{logger: logger.Named("ledger")},
	), nil
}

// ProvideDispatcher creates the event dispatcher with an audit-trail
// subscriber that logs every workflow event.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	disp := dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	)

	registerAuditTrail(disp, logger.Named("audit"))

	return disp, nil
}

// WorkflowDeps holds dependencies for the workflow engine.
type WorkflowDeps struct {
	Repos       *RepositoryBundle
	Ledger      service.LedgerService
	RoleProv    port.RoleProvider
	Attachments port.AttachmentStore
	TxManager   port.TransactionManager
	Dispatcher  dispatcher.Dispatcher
	Config      *config.Config
	Logger      *zap.Logger
}

// ProvideWorkflowEngine creates the approval workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (appworkflow.Engine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil || deps.Ledger == nil || deps.RoleProv == nil ||
		deps.TxManager == nil || deps.Config == nil || deps.Logger == nil {
		return nil, fmt.Errorf("incomplete workflow dependencies")
	}

	definitions := domainwf.NewDefinitionTable(deps.Config.SpecialApprovalThreshold())

	opts := []appworkflow.EngineOption{
		appworkflow.WithMaxRetries(deps.Config.Workflow.MaxRetries),
	}
	if deps.Dispatcher != nil {
		opts = append(opts, appworkflow.WithDispatcher(deps.Dispatcher))
	}
	if deps.Attachments != nil {
		opts = append(opts, appworkflow.WithAttachmentStore(deps.Attachments))
	}

	engine := appworkflow.NewEngine(
		deps.Repos.Request,
		deps.Repos.History,
		deps.Ledger,
		definitions,
		deps.RoleProv,
		deps.TxManager,
		&zapLoggerAdapter{logger: deps.Logger.Named("workflow")},
		opts...,
	)

	return engine, nil
}
