package postgresengine_test

import (
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"

	"github.com/campuslib/library-catalogue-go/catalogue"
	"github.com/campuslib/library-catalogue-go/catalogue/postgresengine"
)

func Test_NewEngineFromPGXPool_Fails_WhenPoolIsNil(t *testing.T) {
	// act
	_, err := postgresengine.NewEngineFromPGXPool(nil)

	// assert
	assert.ErrorIs(t, err, catalogue.ErrNilDatabaseConnection)
}

func Test_NewEngineFromSQLDB_Fails_WhenDBIsNil(t *testing.T) {
	// act
	_, err := postgresengine.NewEngineFromSQLDB(nil)

	// assert
	assert.ErrorIs(t, err, catalogue.ErrNilDatabaseConnection)
}

func Test_NewEngineFromSQLX_Fails_WhenDBIsNil(t *testing.T) {
	// act
	_, err := postgresengine.NewEngineFromSQLX(nil)

	// assert
	assert.ErrorIs(t, err, catalogue.ErrNilDatabaseConnection)
}

func Test_WithTableNames_Fails_WhenAnyNameIsEmpty(t *testing.T) {
	// arrange: sql.Open validates nothing and opens no connection
	db := givenUnconnectedDB(t)
	defer func() { _ = db.Close() }()

	testCases := []struct {
		name   string
		tables postgresengine.TableNames
	}{
		{name: "empty books table", tables: postgresengine.TableNames{BorrowRecords: "br", Users: "u"}},
		{name: "empty borrow records table", tables: postgresengine.TableNames{Books: "b", Users: "u"}},
		{name: "empty users table", tables: postgresengine.TableNames{Books: "b", BorrowRecords: "br"}},
		{name: "all empty", tables: postgresengine.TableNames{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := postgresengine.NewEngineFromSQLDB(db, postgresengine.WithTableNames(tc.tables))

			// assert
			assert.ErrorIs(t, err, catalogue.ErrEmptyTableName)
		})
	}
}

func Test_WithTableNames_Success_WhenAllNamesGiven(t *testing.T) {
	// arrange
	db := givenUnconnectedDB(t)
	defer func() { _ = db.Close() }()

	tables := postgresengine.TableNames{Books: "cat_books", BorrowRecords: "cat_loans", Users: "cat_users"}

	// act
	_, err := postgresengine.NewEngineFromSQLDB(db, postgresengine.WithTableNames(tables))

	// assert
	assert.NoError(t, err)
}

func Test_NewEngineFromSQLX_Success_WithUnconnectedHandle(t *testing.T) {
	// arrange
	db := sqlx.NewDb(givenUnconnectedDB(t), "postgres")
	defer func() { _ = db.Close() }()

	// act
	_, err := postgresengine.NewEngineFromSQLX(db)

	// assert
	assert.NoError(t, err)
}

func givenUnconnectedDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("postgres", "postgres://localhost:5432/unused?sslmode=disable")
	if err != nil {
		t.Fatalf("opening db handle: %v", err)
	}

	return db
}
