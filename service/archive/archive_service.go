/*
 * @module service/archive/archive_service
 * @description 验证结果归档服务，将处理结果写入数据库并提供分页查询和过期清理
 * @architecture 分层架构 - 业务逻辑层
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow 消息处理完成 -> Record写入 -> 按条件查询 -> 定时PurgeBefore清理
 * @rules 归档写入失败不影响消息的队列动作；查询强制分页
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/queue/sink.go, service/cleanup
 */

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dataquality-service/service/models"
)

// Service 验证结果归档服务
type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewService 创建归档服务实例
func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Record 写入一条归档记录，实现queue.ResultSink接口
func (s *Service) Record(ctx context.Context, response *models.QueueValidationResponse) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("归档记录序列化失败: %w", err)
	}

	record := &models.ValidationRecord{
		ID:               uuid.New().String(),
		MessageID:        response.MessageID,
		CorrelationID:    response.CorrelationID,
		Status:           response.Status,
		TotalRules:       response.Summary.TotalRules,
		SuccessfulRules:  response.Summary.SuccessfulRules,
		FailedRules:      response.Summary.FailedRules,
		SuccessRate:      response.Summary.SuccessRate,
		ProcessingTimeMs: response.ProcessingTimeMs,
		WorkerID:         response.WorkerID,
		ErrorMessage:     response.ErrorMessage,
		Payload:          string(payload),
		CreatedAt:        time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("归档记录写入失败: %w", err)
	}
	return nil
}

// ListQuery 归档查询条件
type ListQuery struct {
	MessageID string
	Status    string
	Page      int
	PageSize  int
}

// List 分页查询归档记录
func (s *Service) List(ctx context.Context, query ListQuery) ([]models.ValidationRecord, int64, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 || query.PageSize > 100 {
		query.PageSize = 20
	}

	db := s.db.WithContext(ctx).Model(&models.ValidationRecord{})
	if query.MessageID != "" {
		db = db.Where("message_id = ?", query.MessageID)
	}
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("归档记录统计失败: %w", err)
	}

	var records []models.ValidationRecord
	offset := (query.Page - 1) * query.PageSize
	if err := db.Order("created_at DESC").Offset(offset).Limit(query.PageSize).Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("归档记录查询失败: %w", err)
	}
	return records, total, nil
}

// GetByMessageID 按消息ID查询最新一条归档记录
func (s *Service) GetByMessageID(ctx context.Context, messageID string) (*models.ValidationRecord, error) {
	var record models.ValidationRecord
	err := s.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// PurgeBefore 删除指定时间之前的归档记录，返回删除数量
func (s *Service) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ValidationRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("归档记录清理失败: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Info("归档记录清理完成", "deleted", result.RowsAffected, "cutoff", cutoff)
	}
	return result.RowsAffected, nil
}
