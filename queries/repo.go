package queries

import (
	"errors"
	"time"

	"github.com/jackc/pgconn"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/kuberbook/settlement_api/config"
	"gitlab.com/kuberbook/settlement_api/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const uniqueViolation = "23505"

// Repo structure
type Repo struct {
	Conn       *gorm.DB
	ConnReader *gorm.DB
}

var _ Store = (*Repo)(nil)

var repo *Repo

// GetRepo returns the repo opened by InitRepo
func GetRepo() *Repo {
	return repo
}

// InitRepo opens the writer and reader connections of the cluster
func InitRepo(cfg config.DatabaseClusterConfig) (*Repo, error) {
	writer, err := open(cfg.Writer)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "unable to connect to database [WRITER]")
	}
	reader := writer
	if cfg.Reader.Host != "" {
		reader, err = open(cfg.Reader)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "unable to connect to database [READER]")
		}
	}
	repo = &Repo{Conn: writer, ConnReader: reader}
	return repo, nil
}

func open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	log.Debug().Str("section", "queries").Str("host", cfg.Host).Str("db", cfg.Name).Msg("Database connection opened")
	return db, nil
}

// Close both connection pools
func (repo *Repo) Close() {
	for _, conn := range []*gorm.DB{repo.Conn, repo.ConnReader} {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// mapError converts storage failures into engine error kinds
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.NewNotFoundError("%s not found", what)
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == uniqueViolation {
		conflict := model.NewConflictError("%s already exists", what)
		if pgerr.ConstraintName != "" {
			conflict.Fields = []string{pgerr.ConstraintName}
		}
		return conflict
	}
	return model.NewInternalError(pkgerrors.Wrap(err, what), "storage failure")
}
