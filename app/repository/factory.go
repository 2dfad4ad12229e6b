package repository

import (
	"sync"

	"gorm.io/gorm"
)

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:              NewUserRepository(db),
		CreditTransaction: NewCreditTransactionRepository(db),
		ConversionCache:   NewConversionCacheRepository(db),
	}
}

// Factory lazily builds one set of repositories per database handle.
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// DB returns the handle the repositories were built on.
func (f *Factory) DB() *gorm.DB {
	return f.db
}

// GetRepositories returns the repositories, creating them on first use
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetCreditTransactionRepository returns the ledger read repository instance
func (f *Factory) GetCreditTransactionRepository() CreditTransactionRepository {
	return f.GetRepositories().CreditTransaction
}

// GetConversionCacheRepository returns the conversion cache repository instance
func (f *Factory) GetConversionCacheRepository() ConversionCacheRepository {
	return f.GetRepositories().ConversionCache
}
