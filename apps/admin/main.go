package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/course"
	"github.com/trezcool/masomo-console/core/invigilation"
	"github.com/trezcool/masomo-console/core/program"
	"github.com/trezcool/masomo-console/core/report"
	"github.com/trezcool/masomo-console/storage/database"
	"github.com/trezcool/masomo-console/storage/database/boltsnap"
	inmemdb "github.com/trezcool/masomo-console/storage/database/inmem"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DBs
	db := inmemdb.Open()
	var snapshots *boltsnap.Store
	if conf.Database.SnapshotPath != "" {
		var err error
		snapshots, err = boltsnap.Open(conf.Database.SnapshotPath)
		errAndDie(err)
		snap, ok, err := snapshots.Load()
		errAndDie(err)
		if ok {
			db.Restore(snap)
		}
	}

	var sqlDB *sql.DB
	if conf.Database.Engine == core.EnginePostgres {
		errAndDie(database.CreateIfNotExist(conf))
		sdb, err := database.OpenSqlx(conf)
		errAndDie(err)
		sqlDB = sdb.DB
	}

	// start CLI
	validate := validator.New()
	cli := commandLine{
		conf:      conf,
		db:        db,
		sqlDB:     sqlDB,
		snapshots: snapshots,
		usrRepo:   inmemdb.NewUserRepository(db),
		sources: report.NewSources(
			invigilation.NewService(inmemdb.NewInvigilationRepository(db), validate),
			course.NewService(inmemdb.NewCourseRepository(db), validate),
			program.NewService(inmemdb.NewProgramRepository(db), validate),
		),
		out: os.Stdout,
	}
	err := cli.run(os.Args)
	cli.close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
