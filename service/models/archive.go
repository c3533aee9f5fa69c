/*
 * @module service/models/archive
 * @description 验证结果归档模型，记录每条已处理消息的处理结论，供审计和查询
 * @architecture 分层架构 - 数据模型层
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow 消息处理完成 -> 归档记录写入 -> 定时清理过期记录
 * @rules 归档是处理后的审计副本，不是在途状态，不参与重试判定
 * @dependencies gorm.io/gorm, time
 * @refs service/archive, service/cleanup
 */

package models

import "time"

// ValidationRecord 验证结果归档记录
type ValidationRecord struct {
	ID               string        `json:"id" gorm:"primaryKey;type:varchar(64)"`
	MessageID        string        `json:"message_id" gorm:"type:varchar(128);index"`
	CorrelationID    string        `json:"correlation_id" gorm:"type:varchar(128)"`
	Status           MessageStatus `json:"status" gorm:"type:varchar(16);index"`
	TotalRules       int           `json:"total_rules"`
	SuccessfulRules  int           `json:"successful_rules"`
	FailedRules      int           `json:"failed_rules"`
	SuccessRate      float64       `json:"success_rate"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
	WorkerID         string        `json:"worker_id" gorm:"type:varchar(64)"`
	Attempt          int           `json:"attempt"`
	ErrorMessage     string        `json:"error_message" gorm:"type:text"`
	Payload          string        `json:"payload" gorm:"type:text"` // 完整响应的JSON序列化
	CreatedAt        time.Time     `json:"created_at" gorm:"index"`
}

// TableName 指定表名
func (ValidationRecord) TableName() string {
	return "validation_records"
}
