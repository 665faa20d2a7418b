package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dripfeed/core"
	"github.com/trezcool/dripfeed/core/course"
	appfs "github.com/trezcool/dripfeed/fs"
	emailsvc "github.com/trezcool/dripfeed/services/email"
	logsvc "github.com/trezcool/dripfeed/services/logger"
	"github.com/trezcool/dripfeed/storage/database"
	sqlxrepos "github.com/trezcool/dripfeed/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	std, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatal(err)
	}
	rlogger := logsvc.NewRollbarLogger(std.Named("admin"), conf)
	defer rlogger.Close()
	logger = rlogger

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	core.ParseEmailTemplates(appfs.FS, logger, false /* strict */)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	repo := sqlxrepos.NewCourseRepository(db)

	// start CLI
	cli := commandLine{
		db:     db.DB,
		repo:   repo,
		svc:    course.NewService(repo, mailSvc, validate, conf),
		out:    os.Stdout,
		logger: logger,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed: "+err.Error(), err)
		}
		rlogger.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
