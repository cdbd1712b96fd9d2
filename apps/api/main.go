package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/invigilo/invigilo/apps/api/echo"
	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/activitylog"
	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/examconfig"
	"github.com/invigilo/invigilo/core/examconfig/convert"
	"github.com/invigilo/invigilo/core/institution"
	"github.com/invigilo/invigilo/core/user"
	emailsvc "github.com/invigilo/invigilo/services/email"
	logsvc "github.com/invigilo/invigilo/services/logger"
	"github.com/invigilo/invigilo/storage/database"
	"github.com/invigilo/invigilo/storage/database/sqlxrepos"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	instRepo := sqlxrepos.NewInstitutionRepository(db)
	usrRepo := sqlxrepos.NewUserRepository(db)
	logRepo := sqlxrepos.NewActivityLogRepository(db)
	nodeRepo := sqlxrepos.NewNodeRepository(db)
	cfgRepo := sqlxrepos.NewConfigurationRepository(db)
	attrRepo := sqlxrepos.NewAttributeRepository(db)
	valRepo := sqlxrepos.NewValueRepository(db)

	instSvc := institution.NewService(instRepo)
	usrSvc := user.NewService(usrRepo, mailSvc, logger)
	logSvc := activitylog.NewService(logRepo, logger)
	examCfgSvc := examconfig.NewService(nodeRepo, cfgRepo, attrRepo, valRepo)
	convertSvc := convert.NewService(attrRepo, valRepo)
	authzSvc := authz.NewService()

	// registration order matters: later resolvers depend on earlier
	// ones and are processed first
	bulkSvc := entity.NewBulkService()
	bulkSvc.Register(institution.NewResolver(instRepo))
	bulkSvc.Register(user.NewResolver(usrRepo))
	bulkSvc.Register(examconfig.NewNodeResolver(nodeRepo))

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(
		&echoapi.Options{
			Addr:       core.Conf.Server.Addr,
			Logger:     logger,
			UserSvc:    usrSvc,
			InstSvc:    instSvc,
			LogSvc:     logSvc,
			ExamCfgSvc: examCfgSvc,
			ConvertSvc: convertSvc,
			AuthzSvc:   authzSvc,
			BulkSvc:    bulkSvc,
		},
	)

	go server.Start()

	// =========================================================================
	// Shutdown

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	case <-server.ShutdownSignal():
		logger.Info("integrity issue: Start shutdown...")
	}

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB() (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}
	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
