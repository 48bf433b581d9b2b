package postgres

import (
	"database/sql"
	"database/sql/driver"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// batchConverter lets sqlmock accept the slice arguments the batch statements
// bind to id = ANY($n). The pgx stdlib driver handles slices natively; the
// default converter rejects them.
type batchConverter struct{}

func (batchConverter) ConvertValue(v any) (driver.Value, error) {
	if v != nil && reflect.TypeOf(v).Kind() == reflect.Slice {
		if _, isBytes := v.([]byte); !isBytes {
			return driver.Value(v), nil
		}
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

// newBatchMock opens a sqlmock connection that tolerates slice arguments.
func newBatchMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(batchConverter{}))
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return db, mock
}
