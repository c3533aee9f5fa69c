/*
 * @module service/cleanup/cleanup_service_test
 * @description 归档清理服务单元测试
 * @architecture 测试层
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @refs service/cleanup/cleanup_service.go
 */

package cleanup

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataquality-service/service/archive"
	"dataquality-service/service/models"
	"dataquality-service/testutil"
)

func newTestCleanup(t *testing.T, retentionDays int) (*Service, *testutil.TestDB) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	archiveService := archive.NewService(tdb.DB, logger)
	return NewService(archiveService, retentionDays, logger), tdb
}

func TestRunOncePurgesExpiredRecords(t *testing.T) {
	svc, tdb := newTestCleanup(t, 30)
	factory := testutil.NewTestDataFactory(tdb.DB)

	expired := time.Now().AddDate(0, 0, -31)
	factory.CreateValidationRecord(func(r *models.ValidationRecord) { r.CreatedAt = expired })
	factory.CreateValidationRecord()

	svc.runOnce()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, total, err := archive.NewService(tdb.DB, logger).List(context.Background(), archive.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestStartAndStop(t *testing.T) {
	svc, _ := newTestCleanup(t, 30)

	require.NoError(t, svc.Start())
	svc.Stop()
}
