package repository

import (
	"context"

	"taskflow/internal/model"

	"gorm.io/gorm"
)

// Repositories groups the stores bound to one connection or transaction.
type Repositories struct {
	Boards BoardStore
	Tasks  TaskStore
	Users  UserStore
}

// Transactor runs fn against repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

type Store struct {
	db *gorm.DB
}

var _ Transactor = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Repositories() Repositories {
	return newRepositories(s.db)
}

func (s *Store) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	})
}

func newRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Boards: NewBoardRepository(db),
		Tasks:  NewTaskRepository(db),
		Users:  NewUserRepository(db),
	}
}

// AutoMigrate creates or updates the tables for local runs. Production
// schemas are managed outside this service.
func AutoMigrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	return db.AutoMigrate(&model.User{}, &model.Board{}, &model.Task{})
}
