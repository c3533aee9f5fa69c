/*
 * @module service/init
 * @description 服务初始化模块，负责配置加载、数据库连接、规则引擎和工作器池的初始化
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 数据库、Redis、Kafka均为可选依赖，未配置时对应功能降级关闭，核心队列处理不受影响
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs api/routes.go, main.go
 */

package service

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dataquality-service/client/forwarder"
	"dataquality-service/logger"
	"dataquality-service/service/archive"
	"dataquality-service/service/callback"
	"dataquality-service/service/cleanup"
	"dataquality-service/service/idempotency"
	"dataquality-service/service/models"
	"dataquality-service/service/queue"
	"dataquality-service/service/validation"
)

var (
	DB *gorm.DB

	Settings             *queue.Settings
	GlobalEngine         *validation.Engine
	GlobalStats          *queue.StatsCollector
	GlobalQueueManager   *queue.Manager
	GlobalArchiveService *archive.Service
	GlobalCleanupService *cleanup.Service
)

func init() {
	logger.InitLogger()

	Settings = queue.LoadSettings()
	GlobalEngine = validation.NewEngine()
	GlobalStats = queue.NewStatsCollector(nil)

	initDatabase()
	initQueueManager()
}

// initDatabase 初始化数据库连接，未配置时归档功能关闭
func initDatabase() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" && os.Getenv("DB_HOST") != "" {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}
	if dsn == "" {
		slog.Info("数据库未配置，归档功能关闭")
		return
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := DB.AutoMigrate(&models.ValidationRecord{}); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	slog.Info("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// initQueueManager 初始化队列客户端和工作器池
func initQueueManager() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := queue.NewSQSClient(ctx, Settings, slog.Default())
	if err != nil {
		log.Fatalf("队列客户端初始化失败: %v", err)
	}

	processor := queue.NewProcessor(GlobalEngine, Settings, slog.Default())
	GlobalQueueManager = queue.NewManager(client, processor, Settings, slog.Default(), GlobalStats)

	// 归档落地
	if DB != nil {
		GlobalArchiveService = archive.NewService(DB, slog.Default())
		GlobalQueueManager.AddSink(GlobalArchiveService)

		GlobalCleanupService = cleanup.NewService(GlobalArchiveService, Settings.ArchiveRetentionDays, slog.Default())
		if err := GlobalCleanupService.Start(); err != nil {
			slog.Error("归档清理任务启动失败", "error", err)
		}
	}

	// Kafka结果转发
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaForwarder := forwarder.NewKafkaForwarder(&forwarder.KafkaConfig{
			Brokers: strings.Split(brokers, ","),
			Topic:   getEnvWithDefault("KAFKA_RESULT_TOPIC", "dataquality.results"),
		}, slog.Default())
		GlobalQueueManager.AddSink(kafkaForwarder)
		slog.Info("Kafka结果转发已启用", "brokers", brokers)
	}

	// Redis幂等存储
	if address := os.Getenv("REDIS_ADDRESS"); address != "" {
		store, err := idempotency.NewRedisStore(ctx, &idempotency.Config{
			Address:  address,
			Password: os.Getenv("REDIS_PASSWORD"),
			Database: 0,
		}, slog.Default())
		if err != nil {
			slog.Error("幂等存储初始化失败，去重功能关闭", "error", err)
		} else {
			GlobalQueueManager.SetIdempotencyStore(store)
		}
	}

	GlobalQueueManager.SetCallbackNotifier(callback.NewNotifier(slog.Default()))

	if Settings.AutoStartWorkers {
		if err := GlobalQueueManager.Start(); err != nil {
			slog.Error("工作器池自动启动失败", "error", err)
		}
	}

	slog.Info("服务初始化完成")
}
