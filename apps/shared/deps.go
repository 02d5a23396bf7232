// Package shared wires the services used by the api, bot and admin apps.
package shared

import (
	"context"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/philosothon/philosothon/core"
	"github.com/philosothon/philosothon/core/registration"
	"github.com/philosothon/philosothon/core/user"
	emailsvc "github.com/philosothon/philosothon/services/email"
	"github.com/philosothon/philosothon/storage/database"
	inmemdb "github.com/philosothon/philosothon/storage/database/inmem"
	sqlxrepos "github.com/philosothon/philosothon/storage/database/sqlx"
	firebasestore "github.com/philosothon/philosothon/storage/firebase"
)

type Deps struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *sqlx.DB
	Validate   *validator.Validate
	Translator ut.Translator
	MailSvc    core.EmailService
	UserSvc    *user.Service
	RegSvc     *registration.Service
}

// Setup opens (and migrates) the database and builds the services.
func Setup(ctx context.Context, conf *core.Config, logger core.Logger) (*Deps, error) {
	db, err := setUpDB(ctx, conf)
	if err != nil {
		return nil, errors.Wrap(err, "setting up database")
	}
	deps, err := Build(ctx, conf, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return deps, nil
}

// Build creates the services on top of an open database.
func Build(ctx context.Context, conf *core.Config, logger core.Logger, db *sqlx.DB) (*Deps, error) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(logger)
	user.LoadCommonPasswords(logger)

	deps := &Deps{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		Validate:   validate,
		Translator: translator,
	}
	if conf.Debug {
		deps.MailSvc = emailsvc.NewConsoleService(os.Stdout, conf, logger)
	} else {
		deps.MailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	deps.UserSvc = user.NewService(sqlxrepos.NewUserRepository(db), deps.MailSvc, conf, validate)

	sessions, progress, err := newStores(ctx, conf, db)
	if err != nil {
		return nil, err
	}
	regs := sqlxrepos.NewRegistrationRepository(db)

	catalog, err := registration.DefaultCatalog()
	if err != nil {
		return nil, errors.Wrap(err, "loading questions")
	}
	wizard, err := registration.NewWizard(catalog, registration.NewAdapter(progress, deps.UserSvc, regs, deps.MailSvc))
	if err != nil {
		return nil, errors.Wrap(err, "creating wizard")
	}
	deps.RegSvc = registration.NewService(wizard, sessions, regs, logger)
	return deps, nil
}

func (d *Deps) Close() error {
	return d.DB.Close()
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// newStores picks the session and progress backend.
func newStores(ctx context.Context, conf *core.Config, db *sqlx.DB) (registration.SessionStore, registration.ProgressStore, error) {
	switch conf.Storage.Sessions {
	case core.SessionStoreDatabase, "":
		return sqlxrepos.NewSessionStore(db), sqlxrepos.NewProgressStore(db), nil
	case core.SessionStoreMemory:
		mem := inmemdb.Open()
		return inmemdb.NewSessionStore(mem), inmemdb.NewProgressStore(mem), nil
	case core.SessionStoreFirebase:
		client, err := firebasestore.NewClient(ctx, conf)
		if err != nil {
			return nil, nil, errors.Wrap(err, "connecting to firebase")
		}
		return firebasestore.NewSessionStore(client), firebasestore.NewProgressStore(client), nil
	default:
		return nil, nil, errors.Errorf("unknown session storage %q", conf.Storage.Sessions)
	}
}
