package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"reelforge-backend/internal/config"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// 对账任务类型，队列成员格式为 kind:id
const (
	jobKindAvatar    = "avatar"
	jobKindComposite = "composite"
	jobKindPublish   = "publish"
)

// ReconcileQueueService 基于Redis有序集合的对账任务队列。
// 分数是任务到期时间，工作者只认领已到期的成员，未到期的任务留在集合里等待
type ReconcileQueueService struct {
	db        *gorm.DB
	rdb       *redis.Client
	cfg       config.ReconcileConfig
	pipeline  *PipelineService
	publish   *PublishService
	queueName string
	workers   int
	mu        sync.Mutex
	isRunning bool
}

func NewReconcileQueueService(db *gorm.DB, rdb *redis.Client, cfg config.ReconcileConfig) *ReconcileQueueService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	return &ReconcileQueueService{
		db:        db,
		rdb:       rdb,
		cfg:       cfg,
		queueName: "reconcile_job_queue",
		workers:   workers,
		isRunning: false,
	}
}

// SetPipelineService 注入流水线服务（与队列互相依赖，启动时补齐）
func (s *ReconcileQueueService) SetPipelineService(pipeline *PipelineService) {
	s.pipeline = pipeline
}

// SetPublishService 注入发布服务
func (s *ReconcileQueueService) SetPublishService(publish *PublishService) {
	s.publish = publish
}

func (s *ReconcileQueueService) interval() time.Duration {
	if s.cfg.IntervalSeconds > 0 {
		return time.Duration(s.cfg.IntervalSeconds) * time.Second
	}
	return 30 * time.Second
}

// ScheduleAvatar 调度一次数字人渲染对账
func (s *ReconcileQueueService) ScheduleAvatar(ctx context.Context, videoID uint) error {
	return s.schedule(ctx, fmt.Sprintf("%s:%d", jobKindAvatar, videoID))
}

// ScheduleComposite 调度一次成片合成对账
func (s *ReconcileQueueService) ScheduleComposite(ctx context.Context, videoID uint) error {
	return s.schedule(ctx, fmt.Sprintf("%s:%d", jobKindComposite, videoID))
}

// SchedulePublish 调度一次社交发布对账
func (s *ReconcileQueueService) SchedulePublish(ctx context.Context, taskID string) error {
	return s.schedule(ctx, jobKindPublish+":"+taskID)
}

func (s *ReconcileQueueService) schedule(ctx context.Context, member string) error {
	due := float64(time.Now().Add(s.interval()).Unix())
	if err := s.rdb.ZAdd(ctx, s.queueName, &redis.Z{
		Score:  due,
		Member: member,
	}).Err(); err != nil {
		return fmt.Errorf("对账任务入队失败: %v", err)
	}
	return nil
}

// RemoveVideoJobs 移除某个视频还在排队的对账任务
func (s *ReconcileQueueService) RemoveVideoJobs(ctx context.Context, videoID uint) error {
	members := []interface{}{
		fmt.Sprintf("%s:%d", jobKindAvatar, videoID),
		fmt.Sprintf("%s:%d", jobKindComposite, videoID),
	}
	return s.rdb.ZRem(ctx, s.queueName, members...).Err()
}

// StartWorkers 启动对账工作者
func (s *ReconcileQueueService) StartWorkers(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("对账工作者已在运行")
	}
	s.isRunning = true
	s.mu.Unlock()

	log.Printf("启动 %d 个对账工作者", s.workers)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go s.worker(ctx, i, &wg)
	}

	go func() {
		wg.Wait()
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		log.Println("所有对账工作者已停止")
	}()

	return nil
}

// StopWorkers 停止对账工作者
func (s *ReconcileQueueService) StopWorkers() {
	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
}

func (s *ReconcileQueueService) worker(ctx context.Context, id int, wg *sync.WaitGroup) {
	defer wg.Done()

	log.Printf("对账工作者 %d 启动", id)

	for {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()

		member, err := s.claimNext(ctx)
		if err != nil {
			if err != redis.Nil {
				log.Printf("工作者 %d 认领任务失败: %v", id, err)
			}
			time.Sleep(5 * time.Second)
			continue
		}

		s.dispatch(ctx, id, member)
	}

	log.Printf("对账工作者 %d 停止", id)
}

// claimNext 认领一个已到期的任务。取出后用ZRem确认归属，
// 被其他工作者抢先移除时视为队列为空
func (s *ReconcileQueueService) claimNext(ctx context.Context) (string, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	members, err := s.rdb.ZRangeByScore(ctx, s.queueName, &redis.ZRangeBy{
		Min:   "0",
		Max:   now,
		Count: 1,
	}).Result()
	if err != nil {
		return "", err
	}
	if len(members) == 0 {
		return "", redis.Nil
	}

	removed, err := s.rdb.ZRem(ctx, s.queueName, members[0]).Result()
	if err != nil {
		return "", err
	}
	if removed == 0 {
		return "", redis.Nil
	}

	return members[0], nil
}

func (s *ReconcileQueueService) dispatch(ctx context.Context, workerID int, member string) {
	parts := strings.SplitN(member, ":", 2)
	if len(parts) != 2 {
		log.Printf("工作者 %d 收到无法解析的任务: %s", workerID, member)
		return
	}
	kind, id := parts[0], parts[1]

	var err error
	switch kind {
	case jobKindAvatar:
		videoID, parseErr := strconv.ParseUint(id, 10, 32)
		if parseErr != nil {
			log.Printf("工作者 %d 任务ID解析失败: %s", workerID, member)
			return
		}
		err = s.pipeline.ReconcileAvatar(ctx, uint(videoID))
	case jobKindComposite:
		videoID, parseErr := strconv.ParseUint(id, 10, 32)
		if parseErr != nil {
			log.Printf("工作者 %d 任务ID解析失败: %s", workerID, member)
			return
		}
		err = s.pipeline.ReconcileComposite(ctx, uint(videoID))
	case jobKindPublish:
		err = s.publish.Reconcile(ctx, id)
	default:
		log.Printf("工作者 %d 收到未知类型的任务: %s", workerID, member)
		return
	}

	if err != nil {
		log.Printf("工作者 %d 处理任务 %s 失败: %v", workerID, member, err)
	}
}

// GetQueueStatus 获取队列中待处理的任务
func (s *ReconcileQueueService) GetQueueStatus(ctx context.Context) (int64, []string, error) {
	count, err := s.rdb.ZCard(ctx, s.queueName).Result()
	if err != nil {
		return 0, nil, err
	}

	members, err := s.rdb.ZRange(ctx, s.queueName, 0, -1).Result()
	if err != nil {
		return count, nil, err
	}

	return count, members, nil
}
