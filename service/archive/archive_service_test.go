/*
 * @module service/archive/archive_service_test
 * @description 归档服务单元测试：结果写入、分页查询、按消息查询、过期清理
 * @architecture 测试层
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @refs service/archive/archive_service.go
 */

package archive

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataquality-service/service/models"
	"dataquality-service/testutil"
)

func newTestService(t *testing.T) (*Service, *testutil.TestDB) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(tdb.DB, logger), tdb
}

func sampleResponse(messageID string, status models.MessageStatus) *models.QueueValidationResponse {
	return &models.QueueValidationResponse{
		MessageID:        messageID,
		ProcessedAt:      time.Now(),
		ProcessingTimeMs: 15,
		Status:           status,
		WorkerID:         "worker-0",
		Summary: models.ValidationSummary{
			TotalRules:      2,
			SuccessfulRules: 2,
			SuccessRate:     1.0,
		},
	}
}

func TestRecordAndGetByMessageID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, sampleResponse("msg-001", models.StatusSuccess)))

	record, err := svc.GetByMessageID(ctx, "msg-001")
	require.NoError(t, err)
	assert.Equal(t, "msg-001", record.MessageID)
	assert.Equal(t, models.StatusSuccess, record.Status)
	assert.Equal(t, 2, record.TotalRules)
	assert.NotEmpty(t, record.ID)
	// 完整响应以JSON负载形式保留
	assert.Contains(t, record.Payload, "msg-001")
}

func TestGetByMessageIDNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetByMessageID(context.Background(), "missing")
	assert.Error(t, err)
}

func TestListWithFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, sampleResponse("msg-1", models.StatusSuccess)))
	require.NoError(t, svc.Record(ctx, sampleResponse("msg-2", models.StatusFailed)))
	require.NoError(t, svc.Record(ctx, sampleResponse("msg-3", models.StatusSuccess)))

	records, total, err := svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, records, 3)

	records, total, err = svc.List(ctx, ListQuery{Status: string(models.StatusFailed)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, "msg-2", records[0].MessageID)

	records, total, err = svc.List(ctx, ListQuery{MessageID: "msg-3"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
}

func TestListPagination(t *testing.T) {
	svc, tdb := newTestService(t)
	factory := testutil.NewTestDataFactory(tdb.DB)
	for i := 0; i < 25; i++ {
		factory.CreateValidationRecord()
	}

	records, total, err := svc.List(context.Background(), ListQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, records, 10)

	records, _, err = svc.List(context.Background(), ListQuery{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, records, 5)

	// 非法分页参数回退到默认值
	records, _, err = svc.List(context.Background(), ListQuery{Page: -1, PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, records, 20)
}

func TestPurgeBefore(t *testing.T) {
	svc, tdb := newTestService(t)
	factory := testutil.NewTestDataFactory(tdb.DB)

	old := time.Now().AddDate(0, 0, -40)
	factory.CreateValidationRecord(func(r *models.ValidationRecord) { r.CreatedAt = old })
	factory.CreateValidationRecord(func(r *models.ValidationRecord) { r.CreatedAt = old })
	factory.CreateValidationRecord()

	deleted, err := svc.PurgeBefore(context.Background(), time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, total, err := svc.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
