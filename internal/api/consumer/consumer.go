package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Zereker/filesearch/internal/action"
	"github.com/Zereker/filesearch/internal/domain"
	"github.com/Zereker/filesearch/pkg/log"
	"github.com/Zereker/filesearch/pkg/mq"
)

// Consumer 异步文件摄取消费者
// 从 Kafka 消费 IngestTask, 解析 store 后上传并等待索引完成
type Consumer struct {
	logger    *slog.Logger
	search    *action.FileSearch
	apiKey    string
	consumers []*mq.KafkaConsumer
}

// Config 消费者配置
type Config struct {
	Kafka mq.KafkaConfig
}

// NewConsumer 创建消费者, apiKey 为服务级密钥
func NewConsumer(search *action.FileSearch, apiKey string, cfg Config) (*Consumer, error) {
	c := &Consumer{
		logger: log.Logger("consumer"),
		search: search,
		apiKey: apiKey,
	}

	if !cfg.Kafka.Enabled {
		c.logger.Info("kafka disabled, consumer not started")
		return c, nil
	}

	for _, consumerCfg := range cfg.Kafka.Consumers {
		kc, err := mq.NewKafkaConsumer(cfg.Kafka.Brokers, consumerCfg, c.handleIngest)
		if err != nil {
			return nil, err
		}
		c.consumers = append(c.consumers, kc)
	}

	return c, nil
}

// handleIngest 处理单条摄取任务
func (c *Consumer) handleIngest(ctx context.Context, topic string, message []byte) error {
	var task domain.IngestTask
	if err := json.Unmarshal(message, &task); err != nil {
		// 无法解析的消息丢弃, 避免卡住分区
		c.logger.Error("discarding malformed ingest task", "topic", topic, "error", err)
		return nil
	}

	c.logger.Info("processing ingest task", "task_id", task.ID, "store", task.Store, "path", task.Path)

	store, err := c.search.EnsureStore(ctx, c.apiKey, task.Store)
	if err != nil {
		return err
	}

	doc, err := c.search.UploadDocument(ctx, c.apiKey, store, domain.UploadSource{Path: task.Path}, task.Opts)
	if err != nil {
		if domain.KindOf(err) == domain.KindValidation {
			// 本地文件缺失等永久性错误, 重试无意义
			c.logger.Error("discarding invalid ingest task", "task_id", task.ID, "error", err)
			return nil
		}
		return err
	}

	c.logger.Info("ingest task done", "task_id", task.ID, "document", doc.ID)
	return nil
}

// Start 启动所有消费者
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.consumers) == 0 {
		c.logger.Info("no consumers configured, skipping start")
		return nil
	}

	c.logger.Info("starting consumers", "count", len(c.consumers))

	g, ctx := errgroup.WithContext(ctx)
	for _, consumer := range c.consumers {
		consumer := consumer
		g.Go(func() error {
			return consumer.Start(ctx)
		})
	}

	return g.Wait()
}

// Stop 停止所有消费者
func (c *Consumer) Stop() error {
	c.logger.Info("stopping consumers")

	for _, consumer := range c.consumers {
		if err := consumer.Stop(); err != nil {
			c.logger.Error("failed to stop consumer", "error", err)
		}
	}

	return nil
}
