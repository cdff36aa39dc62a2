package export

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/taciochi/skylumos/internal/logger"
	"github.com/taciochi/skylumos/pkg/synth"
)

// recordingsTableSQL creates the recordings table. Angles are stored in
// degrees to match the CSV sink.
const recordingsTableSQL = `
	CREATE TABLE IF NOT EXISTS sky_recordings (
		run_id String,
		frame UInt32,
		time DateTime64(3),
		sun_alt_deg Float64,
		sun_az_deg Float64,
		element UInt32,
		alt_deg Float64,
		az_deg Float64,
		orientation_deg Float64,
		masked Bool,
		response Float64
	) ENGINE = MergeTree()
	ORDER BY (run_id, frame, element)
`

// ClickHouseSink stores element responses in a sky_recordings table.
type ClickHouseSink struct {
	conn driver.Conn
}

// OpenClickHouse connects, pings and creates the schema. Credentials
// come from the caller (typically the environment).
func OpenClickHouse(ctx context.Context, addr, database, username, password string) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	sink := &ClickHouseSink{conn: conn}
	if err := sink.InitSchema(ctx); err != nil {
		return nil, err
	}
	logger.Info("connected to clickhouse", zap.String("addr", addr), zap.String("database", database))
	return sink, nil
}

// InitSchema creates the recordings table if it does not exist.
func (s *ClickHouseSink) InitSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, recordingsTableSQL); err != nil {
		return fmt.Errorf("create sky_recordings table: %w", err)
	}
	return nil
}

// WriteRun inserts every recording as one batch.
func (s *ClickHouseSink) WriteRun(ctx context.Context, meta Meta, recs []synth.Recording) error {
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO sky_recordings")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	rows := 0
	for _, rec := range recs {
		for _, row := range Flatten(meta.RunID, rec) {
			// The zero time predates the DateTime64 range; runs without
			// timestamps store the epoch instead.
			t := row.Time
			if t.IsZero() {
				t = time.Unix(0, 0).UTC()
			}
			err := batch.Append(
				row.RunID,
				uint32(row.Frame),
				t,
				row.SunAltDeg,
				row.SunAzDeg,
				uint32(row.Element),
				row.AltDeg,
				row.AzDeg,
				row.OrientationDeg,
				row.Masked,
				row.Response,
			)
			if err != nil {
				return fmt.Errorf("append row: %w", err)
			}
			rows++
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	logger.Info("run inserted",
		zap.String("run_id", meta.RunID),
		zap.Int("frames", len(recs)),
		zap.Int("rows", rows))
	return nil
}

// Close closes the connection.
func (s *ClickHouseSink) Close() error {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			return fmt.Errorf("close clickhouse connection: %w", err)
		}
	}
	return nil
}
