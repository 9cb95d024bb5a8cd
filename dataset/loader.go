package dataset

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"time"

	// Registers the postgres driver used for the housing_prices relation.
	_ "github.com/lib/pq"
	"gonum.org/v1/gonum/mat"

	"github.com/itu-sdse/housing-estimator/pkg/errors"
	"github.com/itu-sdse/housing-estimator/pkg/log"
)

const (
	// EnvDatabaseURI is the environment variable holding the data source DSN.
	EnvDatabaseURI = "DB_URI"

	// idColumn is the primary key column of the housing_prices relation.
	idColumn = "id"

	query = "SELECT * FROM housing_prices"
)

// Config carries the data source configuration.
type Config struct {
	DatabaseURI string
}

// ConfigFromEnv reads the data source configuration from the environment.
// A missing DB_URI is a ConfigurationError raised before any I/O.
func ConfigFromEnv() (Config, error) {
	uri := os.Getenv(EnvDatabaseURI)
	if uri == "" {
		return Config{}, errors.NewConfigurationError(EnvDatabaseURI, "environment variable is not set")
	}
	return Config{DatabaseURI: uri}, nil
}

// Load opens a connection to the configured data source, materializes the
// housing_prices relation indexed by id, and releases the connection on every
// exit path. Connection and query failures are wrapped as DataAccessError and
// never retried.
func Load(ctx context.Context, cfg Config, logger log.Logger) (*Dataset, error) {
	if cfg.DatabaseURI == "" {
		return nil, errors.NewConfigurationError(EnvDatabaseURI, "database URI is empty")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURI)
	if err != nil {
		return nil, errors.NewDataAccessError("dataset.Load", err)
	}
	defer db.Close()

	return LoadWithDB(ctx, db, logger)
}

// LoadWithDB executes the housing_prices query against an already-open
// handle. The caller owns the handle's lifecycle; tests use this with a mock
// connection.
func LoadWithDB(ctx context.Context, db *sql.DB, logger log.Logger) (*Dataset, error) {
	if logger == nil {
		logger = log.Nop()
	}

	started := time.Now()
	logger.Debug("executing query", log.OperationKey, "load", "query", query)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewDataAccessError("dataset.Load", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.NewDataAccessError("dataset.Load", err)
	}

	idIdx := -1
	dataColumns := make([]string, 0, len(columns))
	for i, col := range columns {
		if col == idColumn {
			idIdx = i
			continue
		}
		dataColumns = append(dataColumns, col)
	}
	if idIdx < 0 {
		return nil, errors.NewSchemaError("dataset.Load", idColumn, "index column not found in result set")
	}

	var (
		ids    []int64
		values []float64
	)
	scan := make([]interface{}, len(columns))
	for i := range scan {
		scan[i] = new(interface{})
	}

	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, errors.NewDataAccessError("dataset.Load", err)
		}
		for i, cell := range scan {
			raw := *(cell.(*interface{}))
			if i == idIdx {
				id, err := toInt64(raw)
				if err != nil {
					return nil, errors.NewDataAccessError("dataset.Load",
						errors.Wrapf(err, "column %q", columns[i]))
				}
				ids = append(ids, id)
				continue
			}
			v, err := toFloat64(raw)
			if err != nil {
				return nil, errors.NewDataAccessError("dataset.Load",
					errors.Wrapf(err, "column %q", columns[i]))
			}
			values = append(values, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDataAccessError("dataset.Load", err)
	}
	if len(ids) == 0 {
		return nil, errors.NewDataAccessError("dataset.Load", errors.ErrEmptyData)
	}

	data := mat.NewDense(len(ids), len(dataColumns), values)
	ds, err := New(dataColumns, ids, data)
	if err != nil {
		return nil, err
	}

	logger.Info("dataset loaded",
		log.OperationKey, "load",
		log.SamplesKey, ds.NumRows(),
		log.FeaturesKey, ds.NumColumns(),
		log.DurationSecondsKey, time.Since(started).Seconds(),
	)
	return ds, nil
}

// toFloat64 converts a driver value to float64. Boolean columns map to 0/1 so
// the whole table fits one dense matrix.
func toFloat64(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case int:
		return float64(val), nil
	case bool:
		if val {
			return 1.0, nil
		}
		return 0.0, nil
	case []byte:
		return strconv.ParseFloat(string(val), 64)
	case string:
		return strconv.ParseFloat(val, 64)
	case nil:
		return 0, errors.New("unexpected NULL value")
	default:
		return 0, errors.Newf("unsupported column type %T", v)
	}
}

func toInt64(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case []byte:
		return strconv.ParseInt(string(val), 10, 64)
	case string:
		return strconv.ParseInt(val, 10, 64)
	default:
		return 0, errors.Newf("unsupported id column type %T", v)
	}
}
