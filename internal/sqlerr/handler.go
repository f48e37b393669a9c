package sqlerr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/deppfellow/postboard/internal/errs"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// uniqueKeyPattern matches Postgres' default unique constraint names,
// e.g. users_email_key.
var uniqueKeyPattern = regexp.MustCompile(`_([^_]+)_(?:key|ukey)$`)

// ErrCode reports the Code of the first *Error in err's chain, or Other.
func ErrCode(err error) Code {
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return MapCode(pgErr.Code)
	}
	return Other
}

// ConvertPgError converts a raw *pgconn.PgError into an *Error.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// generateErrorCode builds "<ENTITY>_<ACTION>" codes such as
// POST_USER_NOT_FOUND or USER_ALREADY_EXISTS.
func generateErrorCode(sqlErr *Error) string {
	domain := singular(strings.ToUpper(sqlErr.TableName))
	if domain == "" {
		domain = "RECORD"
	}

	switch sqlErr.Code {
	case ForeignKeyViolation:
		// posts.user_id -> POST_USER_NOT_FOUND
		if ref := referencedEntity(sqlErr.ColumnName, sqlErr.ConstraintName); ref != "" {
			return fmt.Sprintf("%s_%s_NOT_FOUND", domain, strings.ToUpper(ref))
		}
		return domain + "_REFERENCE_NOT_FOUND"
	case UniqueViolation:
		return domain + "_ALREADY_EXISTS"
	case NotNullViolation:
		return domain + "_REQUIRED"
	case CheckViolation, InvalidTextValue, NumericOutOfRange:
		return domain + "_INVALID"
	default:
		return domain + "_ERROR"
	}
}

// formatUserFriendlyMessage phrases a client-facing message for sqlErr.
func formatUserFriendlyMessage(sqlErr *Error) string {
	switch sqlErr.Code {
	case ForeignKeyViolation:
		entity := referencedEntity(sqlErr.ColumnName, sqlErr.ConstraintName)
		if entity == "" {
			entity = "record"
		}
		return fmt.Sprintf("The referenced %s does not exist", humanizeText(entity))

	case UniqueViolation:
		entity := humanizeText(singular(sqlErr.TableName))
		if entity == "" {
			entity = "Record"
		}
		if column := extractColumnForUniqueViolation(sqlErr.ConstraintName); column != "" {
			return fmt.Sprintf("A %s with this %s already exists", entity, humanizeText(column))
		}
		return fmt.Sprintf("A %s with this identifier already exists", entity)

	case NotNullViolation:
		field := humanizeText(sqlErr.ColumnName)
		if field == "" {
			field = "field"
		}
		return fmt.Sprintf("The %s is required", field)

	case CheckViolation, InvalidTextValue, NumericOutOfRange:
		if field := humanizeText(sqlErr.ColumnName); field != "" {
			return fmt.Sprintf("The %s value is invalid", field)
		}
		return "One or more values are invalid"

	default:
		return "An error occurred while processing your request"
	}
}

// referencedEntity derives the referenced entity from a foreign key column
// ("user_id" -> "user"). pgx does not always report the column for foreign
// key violations, so the constraint name (posts_user_id_fkey) is the fallback.
func referencedEntity(column, constraint string) string {
	column = strings.ToLower(column)
	if strings.HasSuffix(column, "_id") {
		return strings.TrimSuffix(column, "_id")
	}

	constraint = strings.TrimSuffix(strings.ToLower(constraint), "_fkey")
	if i := strings.LastIndex(constraint, "_id"); i > 0 && i == len(constraint)-3 {
		parts := strings.Split(constraint[:i], "_")
		return parts[len(parts)-1]
	}

	return ""
}

func singular(name string) string {
	if len(name) > 1 && (strings.HasSuffix(name, "s") || strings.HasSuffix(name, "S")) {
		return name[:len(name)-1]
	}
	return name
}

// humanizeText turns snake_case into Title Case ("first_name" -> "First Name").
func humanizeText(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

// extractColumnForUniqueViolation infers the column from a unique
// constraint name. Supports unique_<table>_<column> and
// <table>_<column>_key.
func extractColumnForUniqueViolation(constraintName string) string {
	if constraintName == "" {
		return ""
	}

	if strings.HasPrefix(constraintName, "unique_") {
		parts := strings.Split(constraintName, "_")
		if len(parts) >= 3 {
			return parts[len(parts)-1]
		}
	}

	if matches := uniqueKeyPattern.FindStringSubmatch(constraintName); len(matches) > 1 {
		return matches[1]
	}

	return ""
}

// notFoundEntity extracts the table from errors built by NoRows.
func notFoundEntity(err error) string {
	msg := err.Error()
	_, rest, ok := strings.Cut(msg, "table:")
	if !ok {
		return ""
	}
	table, _, _ := strings.Cut(rest, ":")
	return singular(table)
}

// HandleError converts a database error into an *errs.HTTPError.
//
//   - *errs.HTTPError: returned unchanged
//   - *pgconn.PgError: constraint and input violations become 400, the rest 500
//   - no rows: 404, naming the entity when the error came from NoRows
//   - anything else: 500
//
// Services pick their own statuses for the errors they expect; the global
// error handler uses HandleError for everything else.
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		sqlErr := ConvertPgError(pgErr)
		errorCode := generateErrorCode(sqlErr)
		userMessage := formatUserFriendlyMessage(sqlErr)

		switch sqlErr.Code {
		case ForeignKeyViolation, UniqueViolation, CheckViolation, InvalidTextValue, NumericOutOfRange:
			return errs.NewBadRequestError(userMessage, true, &errorCode, nil).WithCause(sqlErr)

		case NotNullViolation:
			fieldErrors := []errs.FieldError{{
				Field: strings.ToLower(sqlErr.ColumnName),
				Error: "is required",
			}}
			return errs.NewBadRequestError(userMessage, true, &errorCode, fieldErrors).WithCause(sqlErr)

		default:
			return errs.NewInternalServerError().WithCause(sqlErr)
		}
	}

	if IsNoRows(err) {
		if entity := notFoundEntity(err); entity != "" {
			return errs.NewNotFoundError(fmt.Sprintf("%s not found", humanizeText(entity)), true, nil).WithCause(err)
		}
		return errs.NewNotFoundError("Resource not found", false, nil).WithCause(err)
	}

	return errs.NewInternalServerError().WithCause(err)
}
