package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/masomo-console/apps/api/echo"
	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/course"
	"github.com/trezcool/masomo-console/core/invigilation"
	"github.com/trezcool/masomo-console/core/program"
	"github.com/trezcool/masomo-console/core/report"
	"github.com/trezcool/masomo-console/core/user"
	emailsvc "github.com/trezcool/masomo-console/services/email"
	logsvc "github.com/trezcool/masomo-console/services/logger"
	"github.com/trezcool/masomo-console/services/scheduler"
	"github.com/trezcool/masomo-console/storage/database"
	"github.com/trezcool/masomo-console/storage/database/boltsnap"
	inmemdb "github.com/trezcool/masomo-console/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo-console/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// App holds everything main needs to run the API.
type App struct {
	dig.In

	Conf            *core.Config
	Logger          core.Logger
	DBLogger        core.Logger `name:"dbLogger"`
	DB              *inmemdb.DB
	SQL             *sqlx.DB        // nil unless the postgres engine is configured
	Snapshots       *boltsnap.Store // nil when snapshots are disabled
	Server          *echoapi.Server
	Scheduler       *scheduler.Scheduler
	InvigilationSvc *invigilation.Service
}

type serverParams struct {
	dig.In

	Conf            *core.Config
	Logger          core.Logger
	Validate        *validator.Validate
	Translator      ut.Translator
	MailSvc         core.EmailService
	UserSvc         *user.Service
	InvigilationSvc *invigilation.Service
	CourseSvc       *course.Service
	ProgramSvc      *program.Service
	Registerer      prometheus.Registerer
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func newSQLDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, error) {
	if conf.Database.Engine != core.EnginePostgres {
		return nil, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.OpenSqlx(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	loggerParam.Logger.Info(fmt.Sprintf("connected to postgres at %s", conf.DatabaseAddress()))
	return db, nil
}

func newSnapshotStore(conf *core.Config) (*boltsnap.Store, error) {
	if conf.Database.SnapshotPath == "" {
		return nil, nil
	}
	return boltsnap.Open(conf.Database.SnapshotPath)
}

// newProgramRepository keeps programs in postgres when it is configured.
func newProgramRepository(db *inmemdb.DB, sqlDB *sqlx.DB) program.Repository {
	if sqlDB != nil {
		return sqlxrepos.NewProgramRepository(sqlDB)
	}
	return inmemdb.NewProgramRepository(db)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newRegisterer(conf *core.Config) prometheus.Registerer {
	if conf.TestMode {
		return prometheus.NewRegistry()
	}
	return prometheus.DefaultRegisterer
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		MailSvc:         p.MailSvc,
		UserSvc:         p.UserSvc,
		InvigilationSvc: p.InvigilationSvc,
		CourseSvc:       p.CourseSvc,
		ProgramSvc:      p.ProgramSvc,
		Registerer:      p.Registerer,
	})
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newValidator))
	must(c.Provide(newRegisterer))

	// storage
	must(c.Provide(inmemdb.Open))
	must(c.Provide(newSQLDB))
	must(c.Provide(newSnapshotStore))
	must(c.Provide(inmemdb.NewUserRepository))
	must(c.Provide(inmemdb.NewInvigilationRepository))
	must(c.Provide(inmemdb.NewCourseRepository))
	must(c.Provide(newProgramRepository))

	// services
	must(c.Provide(newEmailService))
	must(c.Provide(user.NewService))
	must(c.Provide(invigilation.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(program.NewService))
	must(c.Provide(report.NewSources))
	must(c.Provide(scheduler.New))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
