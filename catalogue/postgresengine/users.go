package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuslib/library-catalogue-go/catalogue"
	"github.com/campuslib/library-catalogue-go/catalogue/postgresengine/internal/adapters"
)

const bcryptCost = 10

// RegisterUser creates an account with a bcrypt-hashed password. Only an
// explicit librarian request yields a librarian account. A username or email
// collision fails with catalogue.ErrDuplicateUser.
func (e Engine) RegisterUser(ctx context.Context, registration catalogue.Registration) (catalogue.User, error) {
	var empty catalogue.User

	if err := registration.Validate(); err != nil {
		return empty, err
	}

	hash, hashErr := bcrypt.GenerateFromPassword([]byte(registration.Password), bcryptCost)
	if hashErr != nil {
		e.logError(ctx, "failed to hash password", logAttrError, hashErr.Error())
		return empty, errors.Join(catalogue.ErrHashingPasswordFailed, hashErr)
	}

	user := catalogue.User{
		Username:     registration.Username,
		Email:        registration.Email,
		PasswordHash: string(hash),
		Contact:      registration.Contact,
		Role:         registration.AccountRole(),
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(e.tables.Users).
		Rows(goqu.Record{
			colUsername: user.Username,
			colEmail:    user.Email,
			colPassword: user.PasswordHash,
			colContact:  nullableString(user.Contact),
			colRole:     string(user.Role),
		}).
		Returning(colID, colCreatedAt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return empty, errors.Join(catalogue.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := e.db.Query(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, "register user", sqlQuery, time.Since(start))

	if queryErr != nil {
		if adapters.IsUniqueViolation(queryErr) {
			return empty, catalogue.ErrDuplicateUser
		}

		e.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)

		return empty, errors.Join(catalogue.ErrQueryFailed, queryErr)
	}
	defer e.closeRows(rows)

	if !rows.Next() {
		return empty, errors.Join(catalogue.ErrQueryFailed, errors.New("insert returned no row"))
	}

	if scanErr := rows.Scan(&user.ID, &user.CreatedAt); scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
		return empty, errors.Join(catalogue.ErrScanRowFailed, scanErr)
	}

	e.logOperation(ctx, "user registered", logAttrUserID, user.ID)

	return user, nil
}

// Login verifies credentials against the stored bcrypt hash. The identifier
// matches either email or username. An unknown account and a wrong password
// surface the same catalogue.ErrInvalidCredentials so the response does not
// reveal which part failed.
func (e Engine) Login(ctx context.Context, emailOrUsername string, password string) (catalogue.User, error) {
	var empty catalogue.User

	if emailOrUsername == "" || password == "" {
		return empty, catalogue.ErrMissingCredentials
	}

	selectStmt := goqu.Dialect(dialectPostgres).
		From(e.tables.Users).
		Select(colID, colUsername, colEmail, colPassword, colContact, colRole, colCreatedAt).
		Where(goqu.Or(
			goqu.C(colEmail).Eq(emailOrUsername),
			goqu.C(colUsername).Eq(emailOrUsername),
		))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return empty, errors.Join(catalogue.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := e.db.Query(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, "login", sqlQuery, time.Since(start))

	if queryErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		return empty, errors.Join(catalogue.ErrQueryFailed, queryErr)
	}
	defer e.closeRows(rows)

	if !rows.Next() {
		return empty, catalogue.ErrInvalidCredentials
	}

	var user catalogue.User
	var contact sql.NullString
	var role string

	scanErr := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &contact, &role, &user.CreatedAt)
	if scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
		return empty, errors.Join(catalogue.ErrScanRowFailed, scanErr)
	}

	if contact.Valid {
		user.Contact = &contact.String
	}

	user.Role = catalogue.Role(role)

	if compareErr := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); compareErr != nil {
		return empty, catalogue.ErrInvalidCredentials
	}

	e.logOperation(ctx, "user logged in", logAttrUserID, user.ID)

	return user, nil
}
