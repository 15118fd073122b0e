package models

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	go_sqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB is the Data Store used by the backend.
var DB *gorm.DB

type ContextKey string

const (
	DBContextURL ContextKey = "immoledger-url"
)

// Connect opens the SQLite database and configures the connection pool.
func Connect(dsn string) error {
	config := gormConfig()

	// Migration with foreign keys disabled since sqlite does not support
	// ALTER COLUMN, tables are copied to a temporary table, then the table
	// is dropped and recreated
	db, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	err = migrate(db)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}
	sqlDB.Close()

	// Now, reconnect with foreign keys enabled
	dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)", dsn)
	db, err = gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err = db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}

	// Get new connections after one hour
	sqlDB.SetConnMaxLifetime(time.Hour)

	// This is done to prevent SQLITE_BUSY errors.
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	return setup(db)
}

// ConnectPostgres opens a PostgreSQL database with the DSN passed.
func ConnectPostgres(dsn string) error {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	err = migrate(db)
	if err != nil {
		return err
	}

	return setup(db)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: &logger{
			Logger: log.Logger,
		},

		// Set generated timestamps in UTC
		NowFunc: func() time.Time {
			return time.Now().In(time.UTC)
		},
	}
}

// setup registers the callbacks and sets the exported DB variable.
func setup(db *gorm.DB) error {
	callbacks := []struct {
		processor interface {
			Register(string, func(*gorm.DB)) error
		}
		name string
		fn   func(*gorm.DB)
	}{
		{db.Callback().Query().After("*"), "immoledger:after_query", queryCallback},
		{db.Callback().Query().After("*"), "immoledger:after_query_general", generalCallback},
		{db.Callback().Create().After("*"), "immoledger:after_create", createUpdateCallback},
		{db.Callback().Create().After("*"), "immoledger:after_create_general", generalCallback},
		{db.Callback().Update().After("*"), "immoledger:after_update", createUpdateCallback},
		{db.Callback().Update().After("*"), "immoledger:after_update_general", generalCallback},
		{db.Callback().Delete().After("*"), "immoledger:after_delete", createUpdateCallback},
		{db.Callback().Delete().After("*"), "immoledger:after_delete_general", generalCallback},
	}

	for _, c := range callbacks {
		err := c.processor.Register(c.name, c.fn)
		if err != nil {
			return err
		}
	}

	// Set the exported variable
	DB = db

	return nil
}

// queryCallback replaces the generic "no record" error with a more user
// friendly one
func queryCallback(db *gorm.DB) {
	if errors.Is(db.Error, gorm.ErrRecordNotFound) {
		// Use the table name as information about the type of resource
		// and replace "_" with "[space]"
		name := strings.ReplaceAll(db.Statement.Table, "_", " ")

		// Replace pluralized "ies" with "y"
		match := regexp.MustCompile("ies$")
		name = match.ReplaceAllString(name, "y")

		// Remove plural "s"
		name = strings.TrimSuffix(name, "s")

		db.Error = fmt.Errorf("%w %s matching your query", ErrResourceNotFound, name)
	}
}

// createUpdateCallback inspects errors returned by the database for create
// and update calls and replaces them with user friendly ones
func createUpdateCallback(db *gorm.DB) {
	if db.Error == nil {
		return
	}

	msg := db.Error.Error()

	// Automatic financial items are unique per contract, month and category
	if strings.Contains(msg, "financial_items.payment_month") || strings.Contains(msg, "financial_item_natural_key") {
		db.Error = ErrFinancialItemNotUnique
		return
	}

	// A transaction is linked at most once to the same financial item
	if strings.Contains(msg, "financial_item_links.financial_item_id") || strings.Contains(msg, "financial_item_link_pair") {
		db.Error = ErrLinkNotUnique
		return
	}

	if strings.Contains(msg, "bank_transactions.import_hash") || strings.Contains(msg, "bank_transaction_import_hash") {
		db.Error = ErrImportHashNotUnique
		return
	}

	// sqlite and postgres both report foreign key violations like this
	if strings.Contains(msg, "FOREIGN KEY constraint failed") || strings.Contains(msg, "violates foreign key constraint") {
		db.Error = ErrInvalidReference
	}
}

// generalCallback handles unspecified errors.
//
// For these errors, we cannot provide the user with a helpful message.
// Instead, the error is logged and we return a general message to users.
func generalCallback(db *gorm.DB) {
	if db.Error == nil {
		return
	}

	// "sql: database is closed" is hard-coded in the sql module
	if db.Error.Error() == "sql: database is closed" || reflect.TypeOf(db.Error) == reflect.TypeOf(&go_sqlite.Error{}) {
		log.Error().Msgf("%T: %v", db.Error, db.Error.Error())
		db.Error = ErrGeneral
	}
}

// migrate migrates all models to the schema defined in the code.
func migrate(db *gorm.DB) (err error) {
	err = db.AutoMigrate(Contract{}, RentChange{}, FinancialItem{}, BankTransaction{}, FinancialItemLink{}, CategorizationRule{})
	if err != nil {
		return fmt.Errorf("error during DB migration: %w", err)
	}

	return nil
}
